package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/scrapehost/metrics"
	"github.com/use-agent/scrapehost/models"
	"github.com/use-agent/scrapehost/webhook"
)

// Invoker runs the external scraper for one URL.
type Invoker interface {
	Invoke(ctx context.Context, url string) *models.InvocationOutcome
}

// Scrape returns a handler for POST /scrape.
//
// Flow:
//  1. Read the "url" form field; empty redirects straight back.
//  2. Run the scraper synchronously.
//  3. Record the outcome (metrics, webhook) and redirect to "/".
//
// The outcome never changes the response: failures are found by reading
// the result afterwards.
func Scrape(inv Invoker, m *metrics.Metrics, n *webhook.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		url := strings.TrimSpace(c.PostForm("url"))
		if url == "" {
			m.IncSkipped()
			c.Redirect(http.StatusSeeOther, "/")
			return
		}

		if outcome := inv.Invoke(c.Request.Context(), url); outcome != nil {
			m.ObserveInvocation(outcome.Succeeded(), outcome.Duration)
			n.Notify(outcome)
		}

		c.Redirect(http.StatusSeeOther, "/")
	}
}
