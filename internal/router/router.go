// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/floor-layout/internal/handler"
	"github.com/iliyamo/floor-layout/internal/metrics"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness, readiness and, when m is set, the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}
