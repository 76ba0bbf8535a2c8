package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/scrapehost/metrics"
	"github.com/use-agent/scrapehost/models"
	"github.com/use-agent/scrapehost/store"
)

// Data returns a handler for GET /api/data (and "/" without the dashboard).
//
// The stored document is written back byte for byte with 200. A missing
// file yields 404 and an unreadable one 500, both in the error envelope.
func Data(rd store.Reader, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := readResult(c, rd, m)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
	}
}

// readResult reads the store and counts the outcome.
func readResult(c *gin.Context, rd store.Reader, m *metrics.Metrics) (store.Document, error) {
	doc, err := rd.Read(c.Request.Context())
	switch {
	case err == nil:
		m.IncRead(metrics.ReadOK)
	case errors.Is(err, models.ErrNotFound):
		m.IncRead(metrics.ReadNotFound)
	default:
		m.IncRead(metrics.ReadError)
	}
	return doc, err
}

// respondError maps a store error to the correct HTTP status code and
// writes the JSON error envelope.
func respondError(c *gin.Context, err error) {
	status, message := mapErrorToStatus(err)
	c.JSON(status, models.ErrorResponse{Error: true, Message: message})
}

// mapErrorToStatus translates store errors to HTTP status codes.
func mapErrorToStatus(err error) (int, string) {
	if errors.Is(err, models.ErrNotFound) {
		return http.StatusNotFound, "Scraped data file not found"
	}
	var readErr *models.ReadError
	if errors.As(err, &readErr) {
		return http.StatusInternalServerError, readErr.Message()
	}
	return http.StatusInternalServerError, err.Error()
}
