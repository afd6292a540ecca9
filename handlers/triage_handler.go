package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/thaimilitary/clock"
	"github.com/patiponrmutl/thaimilitary/feed"
	"github.com/patiponrmutl/thaimilitary/models"
	"github.com/patiponrmutl/thaimilitary/triage"
)

// TriageStore is what the REST dashboard needs from the request store.
type TriageStore interface {
	triage.Mutator
	List(ctx context.Context) ([]models.Request, error)
}

type TriageOptions struct {
	Clock    clock.Clock
	Location *time.Location
	Intents  *triage.Confirmations
	Logger   *slog.Logger
}

// TriageHandler serves the dashboard over plain HTTP. Each call renders
// a fresh dashboard from the current request list; pending intents are
// shared so confirm may arrive on a later request.
type TriageHandler struct {
	store TriageStore
	opts  TriageOptions
}

func NewTriageHandler(s TriageStore, opts TriageOptions) *TriageHandler {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Intents == nil {
		opts.Intents = triage.NewConfirmations(opts.Clock, 2*time.Minute)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &TriageHandler{store: s, opts: opts}
}

func (h *TriageHandler) dashboard(ctx context.Context) (*triage.Dashboard, error) {
	d := triage.NewDashboard(h.store, triage.Options{
		Clock:    h.opts.Clock,
		Location: h.opts.Location,
		Intents:  h.opts.Intents,
	})
	reqs, err := h.store.List(ctx)
	if err != nil {
		h.opts.Logger.Error("list requests", "err", err)
		return nil, err
	}
	d.Apply(feed.NewSnapshot(reqs, 0, h.opts.Clock.Now()))
	return d, nil
}

// GET /admin/requests?tab=new|accepted|overdue
func (h *TriageHandler) List(c echo.Context) error {
	tab, err := triage.ParseCategory(c.QueryParam("tab"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{"error": "INVALID_TAB"})
	}
	d, err := h.dashboard(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	d.SetTab(tab)
	return c.JSON(http.StatusOK, d.View())
}

// GET /admin/requests/:id
func (h *TriageHandler) Detail(c echo.Context) error {
	d, err := h.dashboard(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	detail, err := d.Select(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

// POST /admin/requests/:id/accept → intent (ยังไม่เขียนจนกว่าจะ confirm)
func (h *TriageHandler) Accept(c echo.Context) error {
	d, err := h.dashboard(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	in, err := d.RequestAccept(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, in)
}

// POST /admin/requests/:id/delete → intent
func (h *TriageHandler) Delete(c echo.Context) error {
	d, err := h.dashboard(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	in, err := d.RequestDelete(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, in)
}

// POST /admin/intents/:token/confirm
func (h *TriageHandler) Confirm(c echo.Context) error {
	d := triage.NewDashboard(h.store, triage.Options{Clock: h.opts.Clock, Intents: h.opts.Intents})
	in, err := d.Confirm(c.Request().Context(), c.Param("token"))
	if err != nil {
		he := httpError(err)
		if he.Code >= http.StatusInternalServerError {
			h.opts.Logger.Error("confirm intent", "action", in.Action, "request", in.RequestID, "err", err)
		}
		return he
	}
	h.opts.Logger.Info("intent confirmed", "action", in.Action, "request", in.RequestID)
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// DELETE /admin/intents/:token
func (h *TriageHandler) Cancel(c echo.Context) error {
	if !h.opts.Intents.Cancel(c.Param("token")) {
		return echo.NewHTTPError(http.StatusNotFound, map[string]any{"error": "NOT_FOUND"})
	}
	return c.NoContent(http.StatusNoContent)
}
