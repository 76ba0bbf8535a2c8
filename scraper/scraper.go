// Package scraper implements the bundled scraper program: it fetches one
// URL, summarises the page and writes the result document.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/scrapehost/models"
)

// Writer persists the result document.
type Writer interface {
	Write(doc any) error
}

// Options controls a Scraper.
type Options struct {
	// Attempts is how many times navigation is tried.
	Attempts int // default: 3

	// RetryPause is the wait between navigation attempts.
	RetryPause time.Duration // default: 2s

	// AttemptTimeout bounds a single navigation attempt.
	AttemptTimeout time.Duration // default: 60s

	// IncludeContent adds the readable article as Markdown.
	IncludeContent bool
}

// Scraper drives one engine and writes what it finds.
type Scraper struct {
	engine  Engine
	out     Writer
	content *ContentConverter
	opts    Options
	now     func() time.Time
}

// New creates a Scraper. Zero-valued options take their defaults.
func New(engine Engine, out Writer, opts Options) *Scraper {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.RetryPause < 0 {
		opts.RetryPause = 0
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 60 * time.Second
	}
	s := &Scraper{
		engine: engine,
		out:    out,
		opts:   opts,
		now:    time.Now,
	}
	if opts.IncludeContent {
		s.content = NewContentConverter()
	}
	return s
}

// Run scrapes target and writes the page summary. On failure an error
// document is written instead and the failure is returned.
func (s *Scraper) Run(ctx context.Context, target string) error {
	slog.Info("scrape starting", "url", target, "engine", s.engine.Name())

	page, err := s.fetch(ctx, target)
	if err != nil {
		return s.Fail(target, err)
	}

	summary, err := Extract(page.HTML, page.FinalURL, s.now())
	if err != nil {
		return s.Fail(target, err)
	}

	if s.content != nil {
		content, convErr := s.content.Convert(page.HTML, page.FinalURL)
		if convErr != nil {
			slog.Warn("content conversion failed, omitting content", "url", target, "error", convErr)
		} else {
			summary.Content = content
		}
	}

	if err := s.out.Write(summary); err != nil {
		return fmt.Errorf("scraper: write result: %w", err)
	}
	slog.Info("scrape saved",
		"url", summary.URL,
		"status", page.StatusCode,
		"title", summary.Title,
		"links", len(summary.Links),
	)
	return nil
}

// Fail records cause as the current result and returns it. If the error
// document itself cannot be written, both errors are returned.
func (s *Scraper) Fail(target string, cause error) error {
	slog.Error("scrape failed", "url", target, "error", cause)
	doc := models.FailedScrape{
		Error:     true,
		Message:   cause.Error(),
		URL:       target,
		Timestamp: s.now().UTC().Format(timestampLayout),
	}
	if err := s.out.Write(doc); err != nil {
		return fmt.Errorf("scraper: %w (and writing error document failed: %v)", cause, err)
	}
	return cause
}

// fetch calls the engine up to Attempts times, each bounded by
// AttemptTimeout. Cancellation of ctx itself ends the retries.
func (s *Scraper) fetch(ctx context.Context, target string) (*Page, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.Attempts; attempt++ {
		page, err := s.fetchOnce(ctx, target)
		if err == nil {
			return page, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		left := s.opts.Attempts - attempt
		slog.Warn("navigation failed", "url", target, "attempt", attempt, "retriesLeft", left, "error", err)
		if left == 0 {
			break
		}

		timer := time.NewTimer(s.opts.RetryPause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (s *Scraper) fetchOnce(ctx context.Context, target string) (*Page, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.opts.AttemptTimeout)
	defer cancel()

	page, err := s.engine.Fetch(attemptCtx, target)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("navigation timeout of %s exceeded: %w", s.opts.AttemptTimeout, err)
	}
	return page, err
}
