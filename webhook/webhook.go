package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/scrapehost/models"
)

// Event types.
const (
	EventCompleted = "scrape.completed"
	EventFailed    = "scrape.failed"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-Scrapehost-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string       `json:"type"`
	Timestamp int64        `json:"timestamp"`
	Data      OutcomeEvent `json:"data"`
}

// OutcomeEvent is the webhook view of an invocation outcome.
type OutcomeEvent struct {
	URL        string `json:"url"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// NewEvent builds the event describing outcome.
func NewEvent(outcome *models.InvocationOutcome) *Event {
	typ := EventCompleted
	if !outcome.Succeeded() {
		typ = EventFailed
	}
	return &Event{
		Type:      typ,
		Timestamp: time.Now().Unix(),
		Data: OutcomeEvent{
			URL:        outcome.URL,
			ExitCode:   outcome.ExitCode,
			DurationMs: outcome.Duration.Milliseconds(),
			Error:      outcome.ErrorMessage(),
		},
	}
}

// Notifier posts invocation outcomes to one endpoint.
type Notifier struct {
	url    string
	secret string
	client *http.Client
}

// NewNotifier returns a Notifier, or nil when url is empty.
// A nil *Notifier is valid and sends nothing.
func NewNotifier(url, secret string) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Deliver sends a webhook event synchronously.
// The request body is signed with HMAC-SHA256 if secret is non-empty.
// Header: X-Scrapehost-Signature: sha256=<hex>
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Scrapehost-Webhook/1.0")

	if n.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Notify delivers the outcome in the background with a single attempt.
func (n *Notifier) Notify(outcome *models.InvocationOutcome) {
	if n == nil || outcome == nil {
		return
	}
	event := NewEvent(outcome)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := n.Deliver(ctx, event); err != nil {
			slog.Warn("webhook delivery failed",
				"url", n.url,
				"event", event.Type,
				"error", err,
			)
			return
		}
		slog.Info("webhook delivered", "url", n.url, "event", event.Type)
	}()
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
