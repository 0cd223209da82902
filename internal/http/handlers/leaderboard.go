package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"hunter_trials/internal/repository"

	"github.com/gin-gonic/gin"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// GetLeaderboard returns the best finished sessions
func (h *Handler) GetLeaderboard(c *gin.Context) {
	if h.Results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "leaderboard not configured"})
		return
	}

	limit := defaultLeaderboardLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	top, err := h.Results.Top(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": top,
	})
}

// GetMyResult returns the submitted result of the current session
func (h *Handler) GetMyResult(c *gin.Context) {
	if h.Results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "leaderboard not configured"})
		return
	}
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	res, err := h.Results.BySession(c.Request.Context(), ctrl.SessionID())
	if errors.Is(err, repository.ErrResultNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not finished yet"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}
