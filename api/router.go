package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/scrapehost/api/handler"
	"github.com/use-agent/scrapehost/api/middleware"
	"github.com/use-agent/scrapehost/config"
	"github.com/use-agent/scrapehost/metrics"
	"github.com/use-agent/scrapehost/store"
	"github.com/use-agent/scrapehost/web"
	"github.com/use-agent/scrapehost/webhook"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	/api:    Auth (if keys configured) → RateLimit (if enabled)
//
// Health, metrics, the dashboard and the scrape form stay outside auth so
// probes and browsers always work.
func NewRouter(cfg *config.Config, rd store.Reader, inv handler.Invoker, m *metrics.Metrics, n *webhook.Notifier) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", handler.Health())
	if m != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	if cfg.Server.DashboardUI {
		r.SetHTMLTemplate(web.Templates())
		r.GET("/", handler.Dashboard(rd, cfg.Server.DefaultURL, m))
	} else {
		r.GET("/", handler.Data(rd, m))
	}
	r.POST("/scrape", handler.Scrape(inv, m, n))

	apiGroup := r.Group("/api")
	apiGroup.Use(middleware.Auth(cfg.Auth.APIKeys))
	apiGroup.Use(middleware.RateLimit(cfg.RateLimit))
	apiGroup.GET("/data", handler.Data(rd, m))

	return r
}
