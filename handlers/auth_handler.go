package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/thaimilitary/identity"
	"github.com/patiponrmutl/thaimilitary/middlewares"
)

type AuthHandler struct {
	gate *identity.Gate
	log  *slog.Logger
}

func NewAuthHandler(g *identity.Gate, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{gate: g, log: log}
}

/* ====================== DTOs ====================== */

type AdminLoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

/* ====================== Handlers ====================== */

// POST /admin/login
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var req AdminLoginReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{"error": "INVALID_PAYLOAD"})
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{"error": "MISSING_FIELDS"})
	}

	s, err := h.gate.Login(c.Request().Context(), email, req.Password)
	if err != nil {
		// ไม่บอกว่าผิดที่รหัสผ่านหรือไม่ใช่ผู้ดูแล
		return echo.NewHTTPError(http.StatusUnauthorized, map[string]any{
			"error": "AUTH_FAILED", "message": identity.AuthFailureMessage,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"token":     s.Token,
		"expiresAt": s.ExpiresAt,
		"user":      map[string]any{"email": s.Email},
	})
}

// POST /admin/logout
func (h *AuthHandler) AdminLogout(c echo.Context) error {
	s, ok := middlewares.SessionFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "INVALID_TOKEN"})
	}
	if err := h.gate.Logout(c.Request().Context(), s); err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "INVALID_TOKEN"})
		}
		h.log.Error("admin logout", "email", s.Email, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]any{"error": "LOGOUT_FAILED"})
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}
