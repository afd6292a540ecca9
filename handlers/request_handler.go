package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/thaimilitary/intake"
	"github.com/patiponrmutl/thaimilitary/models"
)

// RequestHandler รับคำขอนัดหมายจากประชาชน (ไม่ต้อง login)
type RequestHandler struct {
	form *intake.Form
	log  *slog.Logger
}

func NewRequestHandler(f *intake.Form, log *slog.Logger) *RequestHandler {
	if log == nil {
		log = slog.Default()
	}
	return &RequestHandler{form: f, log: log}
}

// GET /services
func (h *RequestHandler) Services(c echo.Context) error {
	return c.JSON(http.StatusOK, models.Services)
}

// POST /requests
func (h *RequestHandler) Create(c echo.Context) error {
	var sub intake.Submission
	if err := c.Bind(&sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{"error": "INVALID_PAYLOAD"})
	}

	r, err := h.form.Submit(c.Request().Context(), sub)
	if err != nil {
		he := httpError(err)
		if he.Code >= http.StatusInternalServerError {
			h.log.Error("submit request", "err", err)
		}
		return he
	}
	return c.JSON(http.StatusCreated, r)
}
