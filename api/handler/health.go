package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/scrapehost/models"
)

// Health returns a handler for GET /health.
//
// It is an unconditional liveness signal and checks no dependencies.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  "ok",
			Service: models.ServiceName,
		})
	}
}
