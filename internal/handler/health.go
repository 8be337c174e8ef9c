// Package handler serves the admin HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"authsrv-go/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// ConnectionStats reports on the TCP server.
type ConnectionStats interface {
	ActiveConnections() int
	Addr() string
}

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
	stats   ConnectionStats
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version, stats ConnectionStats) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, stats: stats}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// statusResponse is the body of GET /status.
type statusResponse struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	ListenAddr        string `json:"listen_addr"`
	AuthScheme        string `json:"auth_scheme"`
	MissingResource   string `json:"missing_resource"`
	KeepAlive         bool   `json:"keep_alive"`
	ActiveConnections int    `json:"active_connections"`
}

// Status returns server status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:            "ok",
		Version:           string(h.version),
		ListenAddr:        h.stats.Addr(),
		AuthScheme:        h.cfg.Auth.Scheme,
		MissingResource:   h.cfg.Server.MissingResource,
		KeepAlive:         h.cfg.Server.KeepAlive,
		ActiveConnections: h.stats.ActiveConnections(),
	})
}
