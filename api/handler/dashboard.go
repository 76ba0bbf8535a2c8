package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/scrapehost/metrics"
	"github.com/use-agent/scrapehost/models"
	"github.com/use-agent/scrapehost/store"
	"github.com/use-agent/scrapehost/web"
)

// Status classes used by the dashboard.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DashboardView is everything the dashboard template renders.
type DashboardView struct {
	DefaultURL  string
	HasData     bool
	Data        string
	Status      string
	StatusClass string
}

// Dashboard returns a handler for GET / that renders the latest result.
func Dashboard(rd store.Reader, defaultURL string, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := readResult(c, rd, m)
		c.HTML(http.StatusOK, web.DashboardTemplate, BuildDashboardView(defaultURL, doc, err))
	}
}

// BuildDashboardView derives the status line from a store read.
func BuildDashboardView(defaultURL string, doc store.Document, readErr error) DashboardView {
	view := DashboardView{DefaultURL: defaultURL}

	switch {
	case errors.Is(readErr, models.ErrNotFound):
		view.Status = "No data yet. Submit a URL to scrape."
		return view
	case readErr != nil:
		_, msg := mapErrorToStatus(readErr)
		view.Status = "Error reading data: " + msg
		view.StatusClass = StatusError
		return view
	}

	view.HasData = true
	view.Data = prettyJSON(doc)

	if failed, msg := store.Failed(doc); failed {
		if msg == "" {
			msg = "unknown error"
		}
		view.Status = "Scrape failed: " + msg
		view.StatusClass = StatusError
		return view
	}

	view.Status = "Scrape completed successfully"
	view.StatusClass = StatusSuccess
	return view
}

func prettyJSON(doc store.Document) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return string(doc)
	}
	return buf.String()
}
