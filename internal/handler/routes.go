package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"authsrv-go/internal/config"
	"authsrv-go/internal/metrics"
)

// RegisterRoutes wires all admin handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, health *HealthHandler, m *metrics.Metrics) {
	e.GET("/healthz", health.Healthz)
	e.GET("/status", health.Status)

	e.GET(cfg.Admin.MetricsPath, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		Registry: m.Registry,
	})))
}
