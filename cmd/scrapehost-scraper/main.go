// Command scrapehost-scraper scrapes the page named by SCRAPE_URL and writes
// a JSON summary for the scrapehost dashboard to serve.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/scrapehost/scraper"
	"github.com/use-agent/scrapehost/store"
)

const (
	defaultURL    = "https://example.com"
	defaultOutput = "output/scraped_data.json"
	engineBrowser = "browser"
	engineHTTP    = "http"
	engineAuto    = "auto"

	// autoEscalation is how long the HTTP engine runs alone in auto mode.
	autoEscalation = 2 * time.Second
)

type options struct {
	output  string
	engine  string
	timeout    time.Duration
	navTimeout time.Duration
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "scrapehost-scraper",
		Short:         "Scrape the page in SCRAPE_URL and save a JSON summary",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.output, "output", envOr("SCRAPER_OUTPUT", defaultOutputPath()), "result file path")
	f.StringVar(&opts.engine, "engine", envOr("SCRAPER_ENGINE", engineBrowser), "fetch engine: browser, http or auto")
	f.DurationVar(&opts.timeout, "timeout", envDurationOr("SCRAPER_TIMEOUT", 0), "overall scrape timeout (0 = none)")
	f.DurationVar(&opts.navTimeout, "nav-timeout", envDurationOr("SCRAPER_NAV_TIMEOUT", 60*time.Second), "timeout of each navigation attempt")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	target := envOr("SCRAPE_URL", defaultURL)
	out := store.NewFileStore(opts.output)
	sopts := scraper.Options{
		Attempts:       3,
		RetryPause:     2 * time.Second,
		AttemptTimeout: opts.navTimeout,
		IncludeContent: envBoolOr("SCRAPER_INCLUDE_CONTENT", false),
	}

	engine, closeEngine, err := newEngine(opts.engine)
	if err != nil {
		return scraper.New(nil, out, sopts).Fail(target, err)
	}
	defer closeEngine()

	return scraper.New(engine, out, sopts).Run(ctx, target)
}

// newEngine builds the named engine and the func that releases it.
func newEngine(name string) (scraper.Engine, func(), error) {
	switch name {
	case engineBrowser:
		be, err := newBrowserEngine()
		if err != nil {
			return nil, nil, err
		}
		return be, closeBrowser(be), nil
	case engineHTTP:
		return scraper.NewHTTPEngine(nil), func() {}, nil
	case engineAuto:
		he := scraper.NewHTTPEngine(nil)
		be, err := newBrowserEngine()
		if err != nil {
			slog.Warn("browser unavailable, auto mode uses http only", "error", err)
			return he, func() {}, nil
		}
		race := scraper.NewRaceEngine([]scraper.Engine{he, be}, []time.Duration{0, autoEscalation})
		return race, closeBrowser(be), nil
	default:
		return nil, nil, fmt.Errorf("unknown engine %q", name)
	}
}

// defaultOutputPath places the result under the application root: the
// host's SCRAPEHOST_ROOT when inherited, else this binary's directory.
func defaultOutputPath() string {
	root := os.Getenv("SCRAPEHOST_ROOT")
	if root == "" {
		root = "."
		if exe, err := os.Executable(); err == nil {
			if resolved, err := filepath.EvalSymlinks(exe); err == nil {
				exe = resolved
			}
			root = filepath.Dir(exe)
		}
	}
	return filepath.Join(root, defaultOutput)
}

func newBrowserEngine() (*scraper.BrowserEngine, error) {
	bin := os.Getenv("PUPPETEER_EXECUTABLE_PATH")
	if bin == "" {
		bin = os.Getenv("SCRAPER_BROWSER_BIN")
	}
	return scraper.NewBrowserEngine(scraper.BrowserOptions{
		Bin:                  bin,
		NoSandbox:            envBoolOr("SCRAPER_NO_SANDBOX", true),
		Stealth:              true,
		BlockedResourceTypes: scraper.DefaultBlockedResourceTypes,
	})
}

func closeBrowser(be *scraper.BrowserEngine) func() {
	return func() {
		if err := be.Close(); err != nil {
			slog.Warn("browser close failed", "error", err)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
