package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/thaimilitary/handlers"
	"github.com/patiponrmutl/thaimilitary/identity"
	"github.com/patiponrmutl/thaimilitary/middlewares"
)

// Deps are the shared handler singletons built by the serve command.
type Deps struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Requests *handlers.RequestHandler
	Triage   *handlers.TriageHandler
	Live     *handlers.LiveHandler

	Provider identity.Provider
	Gate     *identity.Gate
}

// Register wires all HTTP routes.
func Register(e *echo.Echo, d Deps) {
	// ===== Public =====
	e.GET("/health", d.Health.Health)
	e.GET("/services", d.Requests.Services)
	e.POST("/requests", d.Requests.Create) // ฟอร์มประชาชน

	e.POST("/admin/login", d.Auth.AdminLogin)

	// ===== Admin routes =====
	admin := e.Group("/admin", middlewares.RequireAuth(d.Provider), middlewares.RequireAdmin(d.Gate))

	admin.POST("/logout", d.Auth.AdminLogout)

	// Triage (REST)
	admin.GET("/requests", d.Triage.List)
	admin.GET("/requests/:id", d.Triage.Detail)
	admin.POST("/requests/:id/accept", d.Triage.Accept)
	admin.POST("/requests/:id/delete", d.Triage.Delete)
	admin.POST("/intents/:token/confirm", d.Triage.Confirm)
	admin.DELETE("/intents/:token", d.Triage.Cancel)

	// Live dashboard (websocket, token ผ่าน ?token= ได้)
	admin.GET("/live", d.Live.Live)
}
