package invoker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/scrapehost/models"
)

// fakeScraper writes an executable shell script into a temp dir and returns
// its path along with the file it appends each received SCRAPE_URL to.
func fakeScraper(t *testing.T, body string) (bin, record string) {
	t.Helper()
	dir := t.TempDir()
	record = filepath.Join(dir, "calls.log")
	bin = filepath.Join(dir, "scraper.sh")
	script := fmt.Sprintf("#!/bin/sh\necho \"$SCRAPE_URL\" >> %q\n%s\n", record, body)
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, record
}

func calls(t *testing.T, record string) []string {
	t.Helper()
	data, err := os.ReadFile(record)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return strings.Fields(string(data))
}

// outcomeDeadline is well below the 2s pipe drain delay, so a run that
// hits it was not rescued by the SIGKILL backstop.
const outcomeDeadline = 1500 * time.Millisecond

func noSettle() Option { return WithSettler(DelaySettler{}) }

func TestInvokeEmptyURLIsNoop(t *testing.T) {
	bin, record := fakeScraper(t, "exit 0")
	inv := New(bin, noSettle())

	for _, url := range []string{"", "   "} {
		assert.Nil(t, inv.Invoke(context.Background(), url))
	}
	assert.Empty(t, calls(t, record))
}

func TestInvokePassesURLThroughEnvironment(t *testing.T) {
	t.Setenv(EnvURL, "https://inherited.test")
	bin, record := fakeScraper(t, "echo scraped")
	inv := New(bin, noSettle())

	outcome := inv.Invoke(context.Background(), "https://target.test/page")

	require.NotNil(t, outcome)
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Equal(t, "https://target.test/page", outcome.URL)
	assert.Contains(t, outcome.Stdout, "scraped")
	assert.Equal(t, []string{"https://target.test/page"}, calls(t, record))
}

func TestInvokeNonZeroExit(t *testing.T) {
	bin, record := fakeScraper(t, "echo 'navigation failed' >&2\nexit 3")
	inv := New(bin, noSettle())

	outcome := inv.Invoke(context.Background(), "https://down.test")

	require.NotNil(t, outcome)
	assert.False(t, outcome.Succeeded())
	assert.Equal(t, 3, outcome.ExitCode)
	assert.Contains(t, outcome.Stderr, "navigation failed")
	var invErr *models.InvocationError
	require.ErrorAs(t, outcome.Err, &invErr)
	assert.Equal(t, 3, invErr.ExitCode)
	assert.Len(t, calls(t, record), 1)
}

func TestInvokeMissingBinary(t *testing.T) {
	inv := New(filepath.Join(t.TempDir(), "missing"), WithSettler(DelaySettler{Delay: time.Hour}))

	start := time.Now()
	outcome := inv.Invoke(context.Background(), "https://x.test")

	require.NotNil(t, outcome)
	assert.Equal(t, -1, outcome.ExitCode)
	assert.Error(t, outcome.Err)
	assert.Less(t, time.Since(start), time.Minute, "spawn failures skip the settle wait")
}

func TestInvokeIgnoresRequestCancellation(t *testing.T) {
	bin, record := fakeScraper(t, "sleep 0.2")
	inv := New(bin, noSettle())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := inv.Invoke(ctx, "https://x.test")

	assert.True(t, outcome.Succeeded())
	assert.Len(t, calls(t, record), 1)
}

func TestInvokeTimeout(t *testing.T) {
	bin, _ := fakeScraper(t, "exec sleep 5")
	inv := New(bin, noSettle(), WithTimeout(100*time.Millisecond))

	start := time.Now()
	outcome := inv.Invoke(context.Background(), "https://slow.test")

	assert.False(t, outcome.Succeeded())
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestInvokeTimeoutLetsScraperRecordFailure(t *testing.T) {
	result := filepath.Join(t.TempDir(), "scraped_data.json")
	bin, _ := fakeScraper(t, fmt.Sprintf(`trap 'kill $pid 2>/dev/null; echo "{\"error\":true,\"message\":\"terminated\"}" > %q; exit 1' TERM
sleep 5 &
pid=$!
wait $pid`, result))
	inv := New(bin, noSettle(), WithTimeout(300*time.Millisecond))

	start := time.Now()
	outcome := inv.Invoke(context.Background(), "https://slow.test")

	assert.Less(t, time.Since(start), outcomeDeadline)
	require.NotNil(t, outcome)
	assert.Equal(t, 1, outcome.ExitCode)
	var invErr *models.InvocationError
	require.ErrorAs(t, outcome.Err, &invErr)
	assert.Contains(t, invErr.Error(), "exited with status 1")
	data, err := os.ReadFile(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"terminated"`)
}

func TestInvokeTimeoutEscalatesToKill(t *testing.T) {
	bin, _ := fakeScraper(t, "trap '' TERM\nsleep 5")
	inv := New(bin, noSettle(), WithTimeout(100*time.Millisecond))

	start := time.Now()
	outcome := inv.Invoke(context.Background(), "https://stubborn.test")

	assert.Less(t, time.Since(start), 4*time.Second)
	require.NotNil(t, outcome)
	assert.False(t, outcome.Succeeded())
}

func TestInvocationErrorMessages(t *testing.T) {
	killed := exec.Command("sh", "-c", "kill -9 $$")
	killErr := killed.Run()
	var exitErr *exec.ExitError
	require.ErrorAs(t, killErr, &exitErr)

	failed := exec.Command("sh", "-c", "exit 4")
	failErr := failed.Run()

	assert.Contains(t, (&models.InvocationError{ExitCode: -1, Err: killErr}).Error(), "scraper terminated")
	assert.Contains(t, (&models.InvocationError{ExitCode: 4, Err: failErr}).Error(), "exited with status 4")
	assert.Contains(t, (&models.InvocationError{ExitCode: -1, Err: exec.ErrNotFound}).Error(), "failed to run")
}

func TestInvokeAppliesSettleDelay(t *testing.T) {
	bin, _ := fakeScraper(t, "exit 0")
	inv := New(bin, WithSettler(DelaySettler{Delay: 150 * time.Millisecond}))

	start := time.Now()
	inv.Invoke(context.Background(), "https://x.test")

	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestWithEnvReplacesInheritedValue(t *testing.T) {
	env := withEnv([]string{"A=1", "SCRAPE_URL=old", "SCRAPE_URL_EXTRA=keep"}, EnvURL, "new")

	assert.Equal(t, []string{"A=1", "SCRAPE_URL_EXTRA=keep", "SCRAPE_URL=new"}, env)
}

func TestTruncateKeepsTail(t *testing.T) {
	long := strings.Repeat("a", maxLoggedOutput) + "END"

	got := truncate(long)

	assert.Len(t, got, maxLoggedOutput)
	assert.True(t, strings.HasSuffix(got, "END"))
}
