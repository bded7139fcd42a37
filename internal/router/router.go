package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/storage"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the account lifecycle endpoints.  Unauthenticated
// operations (signup, login) live under /api/v1/account; refresh requires a
// refresh-type Bearer token and everything else a non-revoked access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, u *handler.UserHandler, jwtSecret string, tokens storage.TokenStorage) {
	g := e.Group("/api/v1/account")
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)
	// The refresh endpoint carries the refresh token in the Authorization
	// header; rotation and reuse detection happen in the accounts service.
	g.POST("/refresh", a.Refresh, middleware.JWTRefresh(jwtSecret))

	// Protected endpoints: signature check plus the revocation gate.
	auth := e.Group("/api/v1")
	auth.Use(middleware.JWTAuth(jwtSecret, tokens))
	auth.POST("/account/logout", a.Logout)
	auth.GET("/users/me", u.Me)
	auth.PATCH("/users/password", u.UpdatePassword)
	auth.GET("/users/history", u.History)
}

// RegisterOauth wires the social-login endpoints.  Both are unauthenticated:
// the session is established by the provider callback.
func RegisterOauth(e *echo.Echo, o *handler.OauthHandler) {
	g := e.Group("/api/v1/oauth")
	g.GET("/login/:provider", o.LoginRedirect)
	g.GET("/callback/:provider", o.Callback)
}

// RegisterAdmin wires the role-management API behind the admin gate.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, tokens storage.TokenStorage) {
	g := e.Group("/api/admin")
	g.Use(middleware.JWTAuth(jwtSecret, tokens))
	g.Use(middleware.RequireAdmin())

	g.GET("/roles", h.ListRoles)
	g.POST("/roles", h.CreateRole)
	g.PATCH("/roles/:id", h.UpdateRole)
	g.DELETE("/roles/:id", h.DeleteRole)

	g.GET("/users/:id/has-role/:name", h.HasRole)
	g.PATCH("/users/:id/set-role/:role_id", h.SetRole)
}
