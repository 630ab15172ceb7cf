// Package handler contains the Echo HTTP handlers.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is anything whose liveness can be probed, such as *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health is the liveness probe: it returns 200 "ok" while the process
// is serving.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready returns a readiness probe that pings db.  A nil db is reported
// as ready so the probe can be mounted before the database is wired.
func Ready(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db == nil {
			return c.String(http.StatusOK, "ok")
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database unavailable"})
		}
		return c.String(http.StatusOK, "ok")
	}
}
