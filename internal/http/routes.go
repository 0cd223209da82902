package http

import (
	"time"

	"hunter_trials/internal/http/handlers"
	"hunter_trials/internal/http/middleware"
	"hunter_trials/internal/progression"
	"hunter_trials/internal/repository"
	"hunter_trials/internal/service"
	"hunter_trials/internal/trial"
	"hunter_trials/internal/ws"

	"github.com/gin-gonic/gin"
)

// Deps holds everything the routes are wired to
type Deps struct {
	Sessions *service.SessionService
	Catalog  *trial.Catalog
	Results  repository.ResultStore
	Hub      *ws.Hub
	// Assets resolves shared asset URLs; nil serves them unchanged
	Assets  progression.Preloader
	Version string

	AllowedOrigin string

	APIRateLimit     int
	APIRateWindow    time.Duration
	ActionRateLimit  int
	ActionRateWindow time.Duration
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := handlers.NewHandler(d.Sessions, d.Catalog, d.Results)
	h.Assets = d.Assets

	healthHandler := handlers.NewHealthHandler(d.Version).
		AddCheck("redis", middleware.PingRedis).
		WithSessions(d.Sessions.ActiveCount)
	if d.Results != nil {
		healthHandler.AddCheck("results", d.Results.Ping)
	}

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.APIRateLimit(d.APIRateLimit, d.APIRateWindow))
	registerAPIRoutes(v1, h, d.ActionRateLimit, d.ActionRateWindow)

	// WebSocket for snapshot push and trial events
	if d.Hub != nil {
		r.GET("/ws", ws.HandleWS(d.Hub, d.Sessions, d.AllowedOrigin))
	}
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, actionRateLimit int, actionRateWindow time.Duration) {
	// Public
	api.POST("/login", h.Login)
	api.GET("/assets", h.SharedAssets)
	api.GET("/lessons/:id", h.Lesson)
	api.GET("/leaderboard", h.GetLeaderboard)

	auth := api.Group("")
	auth.Use(middleware.JWT())

	// Session and navigation
	auth.GET("/session", h.Session)
	auth.DELETE("/session", h.Logout)
	auth.GET("/session/result", h.GetMyResult)
	auth.GET("/trials", h.Trials)
	auth.POST("/trials/:id/enter", h.EnterTrial)
	auth.POST("/map", h.ReturnToMap)
	auth.POST("/guide/open", h.OpenGuide)
	auth.POST("/guide/close", h.CloseGuide)

	// Trial callbacks (per session, not per IP)
	actionRL := middleware.SessionRateLimit(actionRateLimit, actionRateWindow)
	trialGroup := auth.Group("/trial")
	trialGroup.Use(actionRL)
	{
		trialGroup.POST("/fail", h.Fail)
		trialGroup.POST("/success", h.Success)
		trialGroup.POST("/complete", h.Complete)
		trialGroup.POST("/answer", h.Answer)
		trialGroup.POST("/proposal", h.Proposal)
	}

	// Modals
	auth.POST("/modal/feedback/close", h.CloseFeedback)
	auth.POST("/modal/education/close", h.CloseEducation)
}
