package middlewares

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/thaimilitary/identity"
)

// SessionKey เก็บ identity.Session ที่ตรวจแล้วใน echo.Context
const SessionKey = "auth.session"

// ดึง token จาก Authorization header หรือ ?token= (ใช้ตอน upgrade websocket)
func extractBearer(c echo.Context) (string, error) {
	h := c.Request().Header.Get("Authorization")
	if h == "" {
		if tok := strings.TrimSpace(c.QueryParam("token")); tok != "" {
			return tok, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "MISSING_AUTH_HEADER"})
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "INVALID_AUTH_HEADER"})
	}
	return strings.TrimSpace(parts[1]), nil
}

// RequireAuth ตรวจ token กับ identity provider และแนบ session ไว้ใน context
func RequireAuth(p identity.Provider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tok, err := extractBearer(c)
			if err != nil {
				return err
			}
			s, err := p.Verify(tok)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "INVALID_TOKEN"})
			}
			c.Set(SessionKey, s)
			return next(c)
		}
	}
}

// SessionFrom returns the session set by RequireAuth.
func SessionFrom(c echo.Context) (identity.Session, bool) {
	s, ok := c.Get(SessionKey).(identity.Session)
	return s, ok
}
