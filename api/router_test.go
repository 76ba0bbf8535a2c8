package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/scrapehost/config"
	"github.com/use-agent/scrapehost/metrics"
	"github.com/use-agent/scrapehost/models"
	"github.com/use-agent/scrapehost/store"
)

// recordingInvoker stands in for the scraper process: it records each URL
// and optionally writes a result document, like a real scraper would.
type recordingInvoker struct {
	mu     sync.Mutex
	urls   []string
	result string
	path   string
	fail   bool
}

func (r *recordingInvoker) Invoke(_ context.Context, u string) *models.InvocationOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, u)
	if r.result != "" {
		_ = os.WriteFile(r.path, []byte(r.result), 0o644)
	}
	outcome := &models.InvocationOutcome{URL: u}
	if r.fail {
		outcome.ExitCode = 1
		outcome.Err = &models.InvocationError{ExitCode: 1}
	}
	return outcome
}

type fixture struct {
	cfg     *config.Config
	path    string
	invoker *recordingInvoker
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.Server.DefaultURL = "https://default.test"
	cfg.Auth.APIKeys = nil
	cfg.RateLimit.RequestsPerSecond = 0
	path := filepath.Join(t.TempDir(), "scraped_data.json")
	return &fixture{
		cfg:     cfg,
		path:    path,
		invoker: &recordingInvoker{path: path},
		metrics: metrics.New(),
	}
}

func (f *fixture) write(t *testing.T, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.path, []byte(body), 0o644))
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	r := NewRouter(f.cfg, store.NewFileStore(f.path), f.invoker, f.metrics, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (f *fixture) get(target string) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (f *fixture) submit(rawURL string) *httptest.ResponseRecorder {
	form := url.Values{"url": {rawURL}}
	req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req)
}

func TestDataEndpointsReturnDocument(t *testing.T) {
	docs := []string{
		`{"url":"https://example.com","title":"Example Domain","links":[]}`,
		`{"error":true,"message":"net::ERR_NAME_NOT_RESOLVED"}`,
		`[1,"two",{"three":3}]`,
	}

	for _, doc := range docs {
		f := newFixture(t)
		f.cfg.Server.DashboardUI = false
		f.write(t, doc)

		for _, target := range []string{"/api/data", "/"} {
			w := f.get(target)
			assert.Equal(t, http.StatusOK, w.Code, target)
			assert.Equal(t, doc, w.Body.String(), target)
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		}
	}
}

func TestDataEndpointMissingFile(t *testing.T) {
	f := newFixture(t)

	w := f.get("/api/data")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":true,"message":"Scraped data file not found"}`, w.Body.String())
}

func TestDataEndpointMalformedFile(t *testing.T) {
	f := newFixture(t)
	f.write(t, `{"title": `)

	w := f.get("/api/data")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error":true`)
	assert.Contains(t, w.Body.String(), `"message":"`)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ResultReadsTotal.WithLabelValues(metrics.ReadError)))
}

func TestHealthIgnoresResultState(t *testing.T) {
	for _, body := range []string{"", "{broken", `{"ok":true}`} {
		f := newFixture(t)
		if body != "" {
			f.write(t, body)
		}

		w := f.get("/health")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok","service":"web-scraper-host"}`, w.Body.String())
	}
}

func TestScrapeEmptyURLSkipsInvoker(t *testing.T) {
	f := newFixture(t)

	for _, u := range []string{"", "   "} {
		w := f.submit(u)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	}
	assert.Empty(t, f.invoker.urls)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.InvocationsTotal.WithLabelValues(metrics.InvocationSkipped)))
}

func TestScrapeInvokesOnceAndRedirects(t *testing.T) {
	for _, fail := range []bool{false, true} {
		f := newFixture(t)
		f.invoker.fail = fail

		w := f.submit("https://target.test")

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		assert.Equal(t, []string{"https://target.test"}, f.invoker.urls)
	}
}

func TestScrapeThenDashboardShowsResult(t *testing.T) {
	f := newFixture(t)
	f.invoker.result = `{"url":"https://target.test","title":"Target"}`

	f.submit("https://target.test")
	w := f.get("/")

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Scrape completed successfully")
	assert.Contains(t, body, `class="status success"`)
	assert.Contains(t, body, "Target")
	assert.Contains(t, body, `value="https://default.test"`)
}

func TestDashboardStates(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantText  string
		wantClass string
	}{
		{"absent", "", "No data yet", `class="status"`},
		{"malformed", "{oops", "Error reading data", `class="status error"`},
		{"scrape error", `{"error":true,"message":"Navigation timeout of 60000 ms exceeded"}`, "Navigation timeout of 60000 ms exceeded", `class="status error"`},
		{"success", `{"title":"ok"}`, "Scrape completed successfully", `class="status success"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.body != "" {
				f.write(t, tt.body)
			}

			w := f.get("/")

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantText)
			assert.Contains(t, w.Body.String(), tt.wantClass)
		})
	}
}

func TestAPIGroupRequiresKeyWhenConfigured(t *testing.T) {
	f := newFixture(t)
	f.cfg.Auth.APIKeys = []string{"secret"}
	f.write(t, `{"ok":true}`)

	assert.Equal(t, http.StatusUnauthorized, f.get("/api/data").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, f.do(req).Code)

	assert.Equal(t, http.StatusOK, f.get("/health").Code)
	assert.Equal(t, http.StatusOK, f.get("/").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.submit("https://target.test")

	w := f.get("/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scrapehost_invocations_total")
}
