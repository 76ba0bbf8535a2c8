package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RaceEngine runs several engines with staged escalation and returns the
// first page fetched successfully. engines[i] starts delays[i] after the
// race begins; a missing delay means start immediately.
type RaceEngine struct {
	engines []Engine
	delays  []time.Duration
}

// NewRaceEngine creates a RaceEngine. Typically the cheap HTTP engine goes
// first and the browser is started only if it has not won after a delay.
func NewRaceEngine(engines []Engine, delays []time.Duration) *RaceEngine {
	d := make([]time.Duration, len(engines))
	copy(d, delays)
	return &RaceEngine{engines: engines, delays: d}
}

func (r *RaceEngine) Name() string { return "auto" }

// Fetch races the engines. If all of them fail the last error is returned.
func (r *RaceEngine) Fetch(ctx context.Context, target string) (*Page, error) {
	type raceResult struct {
		engine string
		page   *Page
		err    error
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan raceResult, len(r.engines))
	var wg sync.WaitGroup

	for i, eng := range r.engines {
		wg.Add(1)
		go func(e Engine, delay time.Duration) {
			defer wg.Done()

			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-raceCtx.Done():
					return
				case <-timer.C:
				}
			}
			if raceCtx.Err() != nil {
				return
			}

			slog.Debug("engine starting", "engine", e.Name(), "url", target)
			page, err := e.Fetch(raceCtx, target)
			if err != nil {
				slog.Debug("engine failed", "engine", e.Name(), "url", target, "error", err)
			}
			results <- raceResult{engine: e.Name(), page: page, err: err}
		}(eng, r.delays[i])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var lastErr error
	for rr := range results {
		if rr.err != nil {
			lastErr = rr.err
			continue
		}
		cancel()
		slog.Info("engine won race", "engine", rr.engine, "url", target)
		return rr.page, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("race: all engines failed for %s", target)
	}
	return nil, lastErr
}
