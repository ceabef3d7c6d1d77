package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-event-attendance/internal/handler"
	"github.com/iliyamo/campus-event-attendance/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems use this endpoint to verify
	// that the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts a refresh_token body or a bearer header; it does not
	// require the JWT middleware.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("STAFF", "STUDENT"))
	auth.GET("/me", a.Me)

	// Alias outside the auth prefix so clients can log out with either path.
	e.POST("/v1/logout", a.Logout)
}

// RegisterPublic registers the unauthenticated event browse endpoints.
// Responses are cached by the provided middleware; seat counts may be a
// few seconds stale here, admission decisions never read through this
// path.
func RegisterPublic(e *echo.Echo, ev *handler.EventHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/events", ev.List, cache)
	e.GET("/v1/events/:id", ev.Get, cache)
}

// RegisterStudent registers the student-facing registration, waitlist and
// check-in endpoints under /v1.  All routes require a valid JWT with the
// STUDENT role.  The rate limiter wraps the two write endpoints students
// hammer during popular event openings.
func RegisterStudent(e *echo.Echo, reg *handler.RegistrationHandler, att *handler.AttendanceHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("STUDENT"),
	)

	g.POST("/events/:id/register", reg.Register, limiter)
	g.DELETE("/events/:id/registration", reg.Cancel)
	g.DELETE("/events/:id/waitlist", reg.Withdraw)
	g.GET("/events/:id/waitlist/position", reg.WaitlistPosition)
	g.GET("/registrations", reg.MyRegistrations)
	g.POST("/sessions/:id/checkin", att.CheckIn, limiter)
}

// RegisterStaff registers event management, door scanning and attendance
// review endpoints under /v1.  All routes require a valid JWT and the
// STAFF role; per-event ownership is enforced in the repositories.
func RegisterStaff(e *echo.Echo, ev *handler.EventHandler, reg *handler.RegistrationHandler, att *handler.AttendanceHandler, jwtSecret string) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("STAFF"),
	)

	g.POST("/events", ev.Create)
	g.PATCH("/events/:id/window", ev.UpdateWindow)
	g.GET("/events/:id/roster", reg.Roster)

	g.POST("/events/:id/sessions", att.CreateSession)
	g.GET("/sessions/:id/records", att.ListRecords)

	g.POST("/checkin-tokens/redeem", reg.Redeem)
}
