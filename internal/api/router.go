package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/medstargenx/accounts/docs"
	"github.com/medstargenx/accounts/internal/api/handler"
	"github.com/medstargenx/accounts/internal/api/middleware"
	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/internal/core/ports"
)

// RouterOptions carries everything the HTTP layer needs.
type RouterOptions struct {
	Accounts  ports.AccountService
	Approvals ports.ApprovalService
	Tokens    ports.TokenService
	Finder    middleware.AccountFinder
	Readiness map[string]handler.DependencyCheck
	Logger    zerolog.Logger

	// Registerer receives the HTTP metrics; nil means the default registry.
	Registerer prometheus.Registerer

	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(opts RouterOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(opts.Logger))
	e.Use(echomiddleware.Secure())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: opts.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "accounts",
		Registerer: opts.Registerer,
	}))
	if opts.RateLimitRPS > 0 {
		e.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	authenticate := middleware.Authenticate(opts.Tokens, opts.Finder)
	adminOnly := middleware.RequireRoles(domain.RoleAdministrator)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(opts.Accounts)
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/me", authHandler.Me, authenticate)
	auth.PUT("/profile", authHandler.UpdateProfile, authenticate)
	auth.POST("/logout", authHandler.Logout, authenticate)

	// --- Admin routes ---
	adminHandler := handler.NewAdminHandler(opts.Approvals)
	admin := e.Group("/admin", authenticate, adminOnly)
	admin.GET("/pending-users", adminHandler.PendingUsers)
	admin.GET("/users", adminHandler.Users)
	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/users/:id/activity", adminHandler.Activity)
	admin.PUT("/approve-user/:id", adminHandler.Approve)
	admin.PUT("/reject-user/:id", adminHandler.Reject)
	admin.DELETE("/reject-user/:id", adminHandler.Reject)
	admin.PUT("/deactivate-user/:id", adminHandler.Deactivate)
	admin.DELETE("/delete-user/:id", adminHandler.Delete)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(opts.Readiness)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
