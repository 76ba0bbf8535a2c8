package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Settle strategies applied after the scraper process exits.
const (
	SettleDelay = "delay"
	SettleWatch = "watch"
)

// Config holds all application configuration.
type Config struct {
	// Root is the application root. Relative result and scraper paths are
	// resolved against it. Default: the directory of the running executable.
	Root string

	Server    ServerConfig
	Store     StoreConfig
	Invoker   InvokerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 5000
	Mode string // "debug", "release", "test"; default: "release"

	// DashboardUI serves the HTML dashboard at "/". When false, "/" returns
	// the raw result document like /api/data.
	DashboardUI bool // default: true

	// DefaultURL pre-fills the dashboard form.
	DefaultURL string
}

// StoreConfig locates the result file written by the scraper.
type StoreConfig struct {
	ResultPath string // default: "output/scraped_data.json"
}

// InvokerConfig controls how the external scraper is launched.
type InvokerConfig struct {
	// ScraperBin is the path of the scraper executable. It is run without arguments.
	ScraperBin string // default: "./scrapehost-scraper"

	// Timeout bounds a single scraper run. Zero means no limit.
	Timeout time.Duration // default: 0

	// SettleStrategy is "delay" or "watch".
	SettleStrategy string // default: "delay"

	// SettleDelay is the fixed post-exit wait, and the upper bound for "watch".
	SettleDelay time.Duration // default: 1s
}

// AuthConfig controls API key authentication on the /api group.
type AuthConfig struct {
	// APIKeys is the list of valid keys. Empty disables authentication.
	APIKeys []string
}

// RateLimitConfig controls per-identity rate limiting on the /api group.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. Zero disables limiting.
	RequestsPerSecond float64 // default: 0

	// Burst is the maximum burst size per identity.
	Burst int // default: 10
}

// WebhookConfig controls invocation outcome notifications.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	root := envOr("SCRAPEHOST_ROOT", executableDir())
	return &Config{
		Root: root,
		Server: ServerConfig{
			Host:        envOr("SCRAPEHOST_HOST", "0.0.0.0"),
			Port:        envIntOr("SCRAPEHOST_PORT", 5000),
			Mode:        envOr("SCRAPEHOST_MODE", "release"),
			DashboardUI: envBoolOr("SCRAPEHOST_UI", true),
			DefaultURL:  envOr("SCRAPE_URL", "https://example.com"),
		},
		Store: StoreConfig{
			ResultPath: resolvePath(root, envOr("SCRAPEHOST_RESULT_PATH", "output/scraped_data.json")),
		},
		Invoker: InvokerConfig{
			ScraperBin:     resolveCommand(root, envOr("SCRAPEHOST_SCRAPER_BIN", "./scrapehost-scraper")),
			Timeout:        envDurationOr("SCRAPEHOST_SCRAPE_TIMEOUT", 0),
			SettleStrategy: envOr("SCRAPEHOST_SETTLE", SettleDelay),
			SettleDelay:    envDurationOr("SCRAPEHOST_SETTLE_DELAY", time.Second),
		},
		Auth: AuthConfig{
			APIKeys: envSliceOr("SCRAPEHOST_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SCRAPEHOST_RATE_RPS", 0),
			Burst:             envIntOr("SCRAPEHOST_RATE_BURST", 10),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("SCRAPEHOST_WEBHOOK_URL"),
			Secret: os.Getenv("SCRAPEHOST_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("SCRAPEHOST_LOG_LEVEL", "info"),
			Format: envOr("SCRAPEHOST_LOG_FORMAT", "json"),
		},
	}
}

// Validate reports the first configuration value that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Server.Port)
	}
	if c.Store.ResultPath == "" {
		return fmt.Errorf("config: result path must not be empty")
	}
	if c.Invoker.ScraperBin == "" {
		return fmt.Errorf("config: scraper bin must not be empty")
	}
	if c.Invoker.Timeout < 0 {
		return fmt.Errorf("config: scrape timeout must not be negative")
	}
	if c.Invoker.SettleDelay < 0 {
		return fmt.Errorf("config: settle delay must not be negative")
	}
	switch c.Invoker.SettleStrategy {
	case SettleDelay, SettleWatch:
	default:
		return fmt.Errorf("config: unknown settle strategy %q", c.Invoker.SettleStrategy)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("config: rate limit must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("config: rate burst must be positive when limiting is enabled")
	}
	return nil
}

// --- helper functions ---

// executableDir returns the directory holding the running binary, or "."
// when it cannot be determined.
func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// resolvePath anchors a relative path at root.
func resolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// resolveCommand is resolvePath for executables, except that a bare name
// such as "scraper" is left for a PATH lookup.
func resolveCommand(root, bin string) string {
	if !strings.ContainsRune(bin, filepath.Separator) && !strings.ContainsRune(bin, '/') {
		return bin
	}
	return resolvePath(root, bin)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
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

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
