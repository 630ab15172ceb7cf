package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/floor-layout/internal/handler"
	"github.com/iliyamo/floor-layout/internal/middleware"
)

// RegisterFloors registers the floor endpoints under /v1/floors/:floor_id.
// Every route needs a valid JWT with the MANAGER or STAFF role; editing
// and activating the layout is MANAGER only.  limit runs after
// authentication so the rate key can include the user; nil disables it.
func RegisterFloors(e *echo.Echo, h *handler.FloorHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	mw := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleManager, middleware.RoleStaff),
	}
	if limit != nil {
		mw = append(mw, limit)
	}
	g := e.Group("/v1/floors/:floor_id", mw...)
	managerOnly := middleware.RequireRole(middleware.RoleManager)

	// Reads
	g.GET("/draft", h.GetDraft)
	g.GET("/layout", h.GetLayout)
	g.GET("/statuses", h.GetStatuses)

	// Layout editing
	g.PUT("/draft", h.SaveDraft, managerOnly)
	g.POST("/activate", h.Activate, managerOnly)

	// Floor staff flip table states during service
	g.PATCH("/tables/:table_id/status", h.ChangeStatus)
}
