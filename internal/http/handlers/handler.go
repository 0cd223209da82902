package handlers

import (
	"errors"
	"net/http"

	"hunter_trials/internal/domain"
	"hunter_trials/internal/http/middleware"
	"hunter_trials/internal/logger"
	"hunter_trials/internal/progression"
	"hunter_trials/internal/repository"
	"hunter_trials/internal/service"
	"hunter_trials/internal/trial"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Sessions *service.SessionService
	Catalog  *trial.Catalog
	// Results is nil when no local store is configured
	Results repository.ResultStore
	// Assets is nil when preloading is off
	Assets progression.Preloader
}

func NewHandler(sessions *service.SessionService, catalog *trial.Catalog, results repository.ResultStore) *Handler {
	if catalog == nil {
		catalog = trial.Default()
	}
	return &Handler{
		Sessions: sessions,
		Catalog:  catalog,
		Results:  results,
	}
}

// controller извлекает контроллер сессии из контекста Gin
func (h *Handler) controller(c *gin.Context) (*progression.Controller, bool) {
	sessionID := c.GetString(middleware.SessionIDKey)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	ctrl, err := h.Sessions.Get(sessionID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return ctrl, true
}

// respond writes the snapshot of a controller call or maps its error
func respond(c *gin.Context, snap domain.Snapshot, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": snap})
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, trial.ErrUnknownTrial):
		return http.StatusNotFound
	case errors.Is(err, progression.ErrTrialLocked),
		errors.Is(err, progression.ErrWrongScreen),
		errors.Is(err, progression.ErrNoActiveTrial),
		errors.Is(err, progression.ErrAlreadyLoggedIn):
		return http.StatusConflict
	case errors.Is(err, progression.ErrEmptyTeamName):
		return http.StatusBadRequest
	case errors.Is(err, progression.ErrNotLoggedIn),
		errors.Is(err, progression.ErrSessionClosed),
		errors.Is(err, service.ErrSessionNotFound):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
