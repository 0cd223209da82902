package handlers

import (
	"net/http"

	"hunter_trials/internal/proposal"
	"hunter_trials/internal/trial"

	"github.com/gin-gonic/gin"
)

type messageRequest struct {
	Message string `json:"message"`
}

type answerRequest struct {
	Text string `json:"text"`
}

// Fail shows the failure message of the active trial
func (h *Handler) Fail(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	snap, err := ctrl.Fail(req.Message)
	respond(c, snap, err)
}

// Success shows a success message without completing the trial
func (h *Handler) Success(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	snap, err := ctrl.SuccessMessage(req.Message)
	respond(c, snap, err)
}

func (h *Handler) Complete(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	snap, err := ctrl.Complete()
	respond(c, snap, err)
}

func (h *Handler) Answer(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	snap, err := ctrl.SaveAnswer(req.Text)
	respond(c, snap, err)
}

// Proposal drafts the research proposal in the terminal trial and saves it
// as that trial's answer
func (h *Handler) Proposal(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	text, snap, err := ctrl.SaveTerminalAnswer(proposal.Generate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"proposal": text,
		"session":  snap,
	})
}

func (h *Handler) CloseFeedback(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	snap, err := ctrl.CloseFeedback()
	respond(c, snap, err)
}

func (h *Handler) CloseEducation(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	snap, err := ctrl.CloseEducation()
	respond(c, snap, err)
}

// Trials returns the catalogue together with the team's map
func (h *Handler) Trials(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	snap := ctrl.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"trials": ctrl.Catalog().All(),
		"map":    snap.Map,
	})
}

// Lesson returns the lesson shown after a trial. Public: lessons are not
// secret and the guide links to them.
func (h *Handler) Lesson(c *gin.Context) {
	id, err := trial.Parse(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	lesson, ok := h.Catalog.Lesson(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no lesson for trial"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trial":  id,
		"lesson": lesson,
	})
}

// SharedAssets returns the assets shown before login, with unreachable URLs
// replaced by the placeholder
func (h *Handler) SharedAssets(c *gin.Context) {
	shared := h.Catalog.Shared()
	urls := map[string]string{"login_bg": shared.LoginBackground}
	if h.Assets != nil {
		urls = h.Assets.Resolve(urls)
	}
	c.JSON(http.StatusOK, gin.H{
		"assets":      urls,
		"placeholder": shared.Placeholder,
	})
}
