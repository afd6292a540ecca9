package middlewares

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/thaimilitary/identity"
)

// RequireAdmin → ผ่านเฉพาะ session ของอีเมลผู้ดูแลที่กำหนดไว้ (ต้องใช้หลัง RequireAuth)
func RequireAdmin(g *identity.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := SessionFrom(c)
			if !ok || !g.IsAdmin(s.Identity) {
				return echo.NewHTTPError(http.StatusForbidden, map[string]any{"error": "FORBIDDEN"})
			}
			return next(c)
		}
	}
}
