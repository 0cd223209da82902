package handlers

import (
	"net/http"

	"hunter_trials/internal/service"
	"hunter_trials/internal/trial"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	TeamName string `json:"team_name"`
}

// Login starts a new session for the team and returns its token
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctrl, snap, err := h.Sessions.Create(req.TeamName)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := service.GenerateJWT(ctrl.SessionID())
	if err != nil {
		h.Sessions.Remove(ctrl.SessionID())
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"session": snap,
	})
}

func (h *Handler) Session(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": ctrl.Snapshot()})
}

func (h *Handler) EnterTrial(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	id, err := trial.Parse(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	snap, err := ctrl.EnterTrial(id)
	respond(c, snap, err)
}

func (h *Handler) ReturnToMap(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	snap, err := ctrl.ReturnToMap()
	respond(c, snap, err)
}

func (h *Handler) OpenGuide(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	snap, err := ctrl.OpenGuide()
	respond(c, snap, err)
}

func (h *Handler) CloseGuide(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	snap, err := ctrl.CloseGuide()
	respond(c, snap, err)
}

// Logout ends the session. The token stops working immediately.
func (h *Handler) Logout(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	h.Sessions.Remove(ctrl.SessionID())
	c.Status(http.StatusNoContent)
}
