package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/floor-layout/internal/metrics"
)

// RequestLogger logs one structured line per request and counts it in m
// when m is not nil.
func RequestLogger(logger *zap.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the response so the status is final
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			fields := []zap.Field{
				zap.Int("status", status),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", c.Path()),
				zap.String("ip", c.RealIP()),
				zap.String("user", UserID(c)),
				zap.Duration("latency", time.Since(start)),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}

			switch {
			case status >= 500:
				logger.Error("request failed", fields...)
			case status >= 400:
				logger.Warn("client error", fields...)
			default:
				logger.Info("request completed", fields...)
			}

			if m != nil {
				m.HTTPRequests.WithLabelValues(req.Method, c.Path(), strconv.Itoa(status)).Inc()
			}
			return nil
		}
	}
}
