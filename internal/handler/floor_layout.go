package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/floor-layout/internal/layout"
	"github.com/iliyamo/floor-layout/internal/middleware"
	"github.com/iliyamo/floor-layout/internal/model"
	"github.com/iliyamo/floor-layout/internal/service"
)

// FloorHandler serves the draft, activation and status endpoints of a
// floor.
type FloorHandler struct {
	Layouts *service.LayoutService // drafts, activation and the status board
	Timeout time.Duration          // upper bound for each request's storage work
	Logger  *zap.Logger            // unexpected failures only; rejections are not logged here
}

// NewFloorHandler builds a handler.  A zero timeout means 5s.
func NewFloorHandler(svc *service.LayoutService, timeout time.Duration, logger *zap.Logger) *FloorHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FloorHandler{Layouts: svc, Timeout: timeout, Logger: logger}
}

// versionResponse answers draft saves and activations.
type versionResponse struct {
	FloorID string `json:"floor_id"`
	Version int64  `json:"version"`
}

// activeLayoutResponse flattens the active snapshot for viewers; the
// draft is never exposed on this route.
type activeLayoutResponse struct {
	FloorID   string        `json:"floor_id"`
	Version   int64         `json:"version"`
	Tables    []model.Table `json:"tables"`
	Zones     []model.Zone  `json:"zones"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ctx derives the storage context from the request so a client that goes
// away also cancels its queries.
func (h *FloorHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// floorID reads the trimmed :floor_id path parameter.
func floorID(c echo.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("floor_id"))
	return id, id != ""
}

// SaveDraft handles PUT /v1/floors/:floor_id/draft.  The body is a
// snapshot {tables, zones}; the previous draft is overwritten.
func (h *FloorHandler) SaveDraft(c echo.Context) error {
	id, ok := floorID(c)
	if !ok {
		return badRequest(c, layout.CodeValidation, "floor id is required")
	}
	// A body that is not a snapshot at all is rejected before the
	// service sees it; field level checks happen in the service.
	var snap model.Snapshot
	if err := c.Bind(&snap); err != nil {
		return badRequest(c, layout.CodeValidation, "invalid request body")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Layouts.SaveDraft(ctx, id, snap); err != nil {
		return h.writeError(c, err)
	}
	// Report the version the draft must be activated against.  Saving a
	// draft never changes it.
	v, err := h.Layouts.LayoutVersion(ctx, id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, versionResponse{FloorID: id, Version: v})
}

// GetDraft handles GET /v1/floors/:floor_id/draft.
func (h *FloorHandler) GetDraft(c echo.Context) error {
	id, ok := floorID(c)
	if !ok {
		return badRequest(c, layout.CodeValidation, "floor id is required")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	snap, err := h.Layouts.LoadDraft(ctx, id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// Activate handles POST /v1/floors/:floor_id/activate with body
// {"expected_version": n}.
func (h *FloorHandler) Activate(c echo.Context) error {
	id, ok := floorID(c)
	if !ok {
		return badRequest(c, layout.CodeValidation, "floor id is required")
	}
	var body struct {
		ExpectedVersion *int64 `json:"expected_version"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, layout.CodeValidation, "invalid request body")
	}
	// The version is a pointer so a missing field is told apart from an
	// explicit zero; neither can match a stored version.
	if body.ExpectedVersion == nil || *body.ExpectedVersion < 1 {
		return badRequest(c, layout.CodeValidation, "expected_version is required")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	// The acting user is recorded on the activation event.
	v, err := h.Layouts.Activate(ctx, id, *body.ExpectedVersion, middleware.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, versionResponse{FloorID: id, Version: v})
}

// GetLayout handles GET /v1/floors/:floor_id/layout and returns the
// active layout.
func (h *FloorHandler) GetLayout(c echo.Context) error {
	id, ok := floorID(c)
	if !ok {
		return badRequest(c, layout.CodeValidation, "floor id is required")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	l, err := h.Layouts.ActiveLayout(ctx, id)
	if err != nil {
		return h.writeError(c, err)
	}
	resp := activeLayoutResponse{
		FloorID:   l.FloorID,
		Version:   l.Version,
		Tables:    l.Active.Tables,
		Zones:     l.Active.Zones,
		UpdatedAt: l.UpdatedAt,
	}
	// Empty floors serialise as [] rather than null.
	if resp.Tables == nil {
		resp.Tables = []model.Table{}
	}
	if resp.Zones == nil {
		resp.Zones = []model.Zone{}
	}
	return c.JSON(http.StatusOK, resp)
}

// GetStatuses handles GET /v1/floors/:floor_id/statuses.
func (h *FloorHandler) GetStatuses(c echo.Context) error {
	id, ok := floorID(c)
	if !ok {
		return badRequest(c, layout.CodeValidation, "floor id is required")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	st, err := h.Layouts.TableStatuses(ctx, id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"floor_id": id, "statuses": st})
}

// ChangeStatus handles PATCH /v1/floors/:floor_id/tables/:table_id/status
// with body {"status": "occupied"}.
func (h *FloorHandler) ChangeStatus(c echo.Context) error {
	id, ok := floorID(c)
	if !ok {
		return badRequest(c, layout.CodeValidation, "floor id is required")
	}
	tableID := strings.TrimSpace(c.Param("table_id"))
	var body struct {
		Status model.TableStatus `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, layout.CodeValidation, "invalid request body")
	}
	if tableID == "" || body.Status == "" {
		return badRequest(c, layout.CodeValidation, "table id and status are required")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	// The service checks the transition against the stored status and
	// fails with INVALID_TRANSITION when another request got there first.
	change, err := h.Layouts.ChangeTableStatus(ctx, id, tableID, body.Status, middleware.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, change)
}

// badRequest writes a 400 with a machine readable code and a message.
func badRequest(c echo.Context, code layout.Code, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": code, "message": msg})
}

// writeError maps service errors to the wire contract.
func (h *FloorHandler) writeError(c echo.Context, err error) error {
	// Rejections carry their own code.  Conflicts with another writer are
	// 409, everything else the client can fix is 400.
	var be *layout.BoundaryError
	if errors.As(err, &be) {
		status := http.StatusBadRequest
		if be.Code == layout.CodeStaleVersion || be.Code == layout.CodeInvalidTransition {
			status = http.StatusConflict
		}
		return c.JSON(status, echo.Map{"error": be.Code, "message": be.Detail})
	}

	switch {
	case errors.Is(err, layout.ErrFloorNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "floor not found"})
	case errors.Is(err, layout.ErrDraftNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "draft not found"})
	case errors.Is(err, layout.ErrTableNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timeout"})
	}
	// Anything left is a storage failure.  The cause is logged and the
	// client gets a generic body.
	h.Logger.Error("floor request failed",
		zap.String("path", c.Path()),
		zap.String("floor_id", c.Param("floor_id")),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
