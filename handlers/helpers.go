package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/thaimilitary/intake"
	"github.com/patiponrmutl/thaimilitary/store"
	"github.com/patiponrmutl/thaimilitary/triage"
)

// แปลง error ของ domain เป็น HTTP error รูปแบบ {"error": CODE}
func httpError(err error) *echo.HTTPError {
	var verr *intake.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{
			"error": "VALIDATION_ERROR", "field": verr.Field, "message": verr.Message,
		})
	case errors.Is(err, triage.ErrRequestNotFound), errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, map[string]any{"error": "NOT_FOUND"})
	case errors.Is(err, triage.ErrUnknownIntent):
		return echo.NewHTTPError(http.StatusGone, map[string]any{"error": "INTENT_EXPIRED"})
	case errors.Is(err, triage.ErrAlreadyAccepted):
		return echo.NewHTTPError(http.StatusConflict, map[string]any{"error": "ALREADY_ACCEPTED"})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]any{"error": "STORE_ERROR"})
	}
}

// errorCode คืน CODE เดียวกับ httpError สำหรับส่งทาง websocket
func errorCode(err error) string {
	he := httpError(err)
	if m, ok := he.Message.(map[string]any); ok {
		if code, ok := m["error"].(string); ok {
			return code
		}
	}
	return "STORE_ERROR"
}
