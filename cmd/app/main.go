package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"hunter_trials/internal/assets"
	"hunter_trials/internal/config"
	"hunter_trials/internal/db"
	httpServer "hunter_trials/internal/http"
	"hunter_trials/internal/http/middleware"
	"hunter_trials/internal/logger"
	"hunter_trials/internal/progression"
	"hunter_trials/internal/service"
	"hunter_trials/internal/submission"
	"hunter_trials/internal/trial"
	"hunter_trials/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	catalog := trial.Default()
	if cfg.ContentPath != "" {
		c, err := trial.LoadFile(cfg.ContentPath)
		if err != nil {
			logger.Fatal("failed to load trial catalogue", "path", cfg.ContentPath, "error", err)
		}
		catalog = c
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, closeResults := db.OpenResultStore(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	defer closeResults()

	dispatcher := submission.NewDispatcher()
	if cfg.SubmissionURL != "" {
		dispatcher.Add("remote", submission.NewClient(cfg.SubmissionURL, cfg.SubmissionTimeout))
	}
	if results != nil {
		dispatcher.Add("store", submission.SinkFunc(results.Save))
	}

	unlock := progression.Sequential
	if cfg.UnlockAll {
		unlock = progression.Open
		logger.Warn("all trials unlocked")
	}

	hub := ws.NewHub()
	opts := progression.Options{
		Catalog:           catalog,
		Unlock:            unlock,
		Submitter:         dispatcher,
		Observer:          hub,
		EducationDelay:    cfg.EducationDelay,
		SubmissionDelay:   cfg.SubmissionDelay,
		SubmissionTimeout: cfg.SubmissionTimeout,
	}
	if cfg.PreloadAssets {
		preloader := assets.NewPreloader(catalog.Shared().Placeholder, 5*time.Second)
		if bg := catalog.Shared().LoginBackground; bg != "" {
			preloader.Warm(ctx, []string{bg})
		}
		opts.Preloader = preloader
	}

	sessions := service.NewSessionService(opts, cfg.SessionTTL)
	sessions.OnRemove(hub.CloseSession)
	sessions.StartCleanup(ctx, time.Minute)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "*" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Sessions:         sessions,
		Catalog:          catalog,
		Results:          results,
		Hub:              hub,
		Assets:           opts.Preloader,
		Version:          cfg.AppVersion,
		AllowedOrigin:    cfg.AllowedOrigin,
		APIRateLimit:     cfg.APIRateLimit,
		APIRateWindow:    cfg.APIRateWindow(),
		ActionRateLimit:  cfg.ActionRateLimit,
		ActionRateWindow: cfg.ActionRateWindow(),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", cfg.AppVersion,
			"unlock", unlock.String(), "sinks", dispatcher.Len())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
