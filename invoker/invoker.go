// Package invoker runs the external scraper program for one URL.
package invoker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/use-agent/scrapehost/models"
)

// EnvURL is the environment variable that carries the target URL into the
// scraper process.
const EnvURL = "SCRAPE_URL"

// maxLoggedOutput caps how much of each output stream is logged.
const maxLoggedOutput = 2048

const outputDrainDelay = 2 * time.Second

// Invoker launches the scraper synchronously. It is safe for concurrent use;
// concurrent runs are not serialised and may race on the result file.
type Invoker struct {
	bin     string
	timeout time.Duration
	settler Settler
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithTimeout bounds each run. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(inv *Invoker) { inv.timeout = d }
}

// WithSettler replaces the default post-exit settle strategy.
func WithSettler(s Settler) Option {
	return func(inv *Invoker) { inv.settler = s }
}

// New creates an Invoker for the executable at bin. By default it waits one
// second after the process exits.
func New(bin string, opts ...Option) *Invoker {
	inv := &Invoker{
		bin:     bin,
		settler: DelaySettler{Delay: time.Second},
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Invoke runs the scraper for url and blocks until it exits and the settle
// strategy has completed. An empty url is a no-op and returns nil.
//
// Failures are recorded in the returned outcome and logged; they are never
// returned as errors. Cancellation of ctx does not stop the scraper, only
// the configured timeout does.
func (inv *Invoker) Invoke(ctx context.Context, url string) *models.InvocationOutcome {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}

	runCtx := context.WithoutCancel(ctx)
	if inv.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, inv.timeout)
		defer cancel()
	}

	handoff := inv.settler.Arm()
	defer handoff.Close()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, inv.bin)
	cmd.Env = withEnv(os.Environ(), EnvURL, url)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// On timeout ask the scraper to stop so it can record the failure;
	// WaitDelay escalates to SIGKILL and bounds the wait for output pipes
	// held open by orphaned grandchildren.
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = outputDrainDelay

	outcome := &models.InvocationOutcome{URL: url, StartedAt: time.Now()}
	slog.Info("scraper starting", "bin", inv.bin, "url", url)

	err := cmd.Run()
	outcome.Duration = time.Since(outcome.StartedAt)
	outcome.Stdout = stdout.String()
	outcome.Stderr = stderr.String()

	if err != nil {
		var exitErr *exec.ExitError
		spawned := errors.As(err, &exitErr)
		if spawned {
			outcome.ExitCode = exitErr.ExitCode()
		} else {
			outcome.ExitCode = -1
		}
		outcome.Err = &models.InvocationError{ExitCode: outcome.ExitCode, Err: err}

		slog.Error("scraper failed",
			"url", url,
			"exitCode", outcome.ExitCode,
			"duration", outcome.Duration,
			"timedOut", errors.Is(runCtx.Err(), context.DeadlineExceeded),
			"error", err,
			"stderr", truncate(outcome.Stderr),
		)
		if !spawned {
			return outcome
		}
	} else {
		slog.Info("scraper finished",
			"url", url,
			"duration", outcome.Duration,
			"stdout", truncate(outcome.Stdout),
		)
	}

	handoff.Wait()
	return outcome
}

// withEnv returns env with key set to value, dropping any inherited value.
func withEnv(env []string, key, value string) []string {
	prefix := key + "="
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+value)
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLoggedOutput {
		return s
	}
	return s[len(s)-maxLoggedOutput:]
}
