package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// BrowserOptions controls the headless Chromium instance.
type BrowserOptions struct {
	// Bin overrides the Chromium binary path.
	Bin string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool

	// Stealth masks navigator.webdriver and similar automation tells.
	Stealth bool

	// BlockedResourceTypes lists resource types to abort.
	BlockedResourceTypes []string
}

// BrowserEngine renders pages in a headless Chromium driven by rod.
type BrowserEngine struct {
	browser *rod.Browser
	opts    BrowserOptions
}

// NewBrowserEngine launches Chromium and connects to it.
func NewBrowserEngine(opts BrowserOptions) (*BrowserEngine, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(opts.NoSandbox)

	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-software-rasterizer"))
	l.Set(flags.Flag("disable-accelerated-2d-canvas"))
	l.Set(flags.Flag("ignore-certificate-errors"))
	l.Set(flags.Flag("mute-audio"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("no-zygote"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	return &BrowserEngine{browser: browser, opts: opts}, nil
}

func (e *BrowserEngine) Name() string { return "browser" }

// Fetch opens a fresh tab, navigates and returns the rendered HTML.
//
// Stealth and hijacking are installed before navigation: both only take
// effect for navigations that start after them.
func (e *BrowserEngine) Fetch(ctx context.Context, target string) (*Page, error) {
	page, err := e.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("browser: new page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	if e.opts.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	if u, parseErr := url.Parse(target); parseErr == nil && u.Hostname() != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			}),
		}.Call(page)
	}

	router := setupHijack(page, e.opts.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	// Wait for DOMContentLoaded, not load. The waiter must exist before
	// Navigate or the event can be missed.
	waitDOMReady := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(target); err != nil {
		return nil, fmt.Errorf("browser: navigate: %w", err)
	}
	waitDOMReady()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("browser: wait domcontentloaded: %w", err)
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("browser: read html: %w", err)
	}

	statusCode := 0
	if res, evalErr := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); evalErr == nil {
		statusCode = res.Value.Int()
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = target
	}

	return &Page{HTML: rawHTML, FinalURL: finalURL, StatusCode: statusCode}, nil
}

// Close kills the browser process.
func (e *BrowserEngine) Close() error {
	slog.Info("closing browser")
	return e.browser.Close()
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to proto.NetworkHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
