package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/services"
)

type SessionHandler struct {
	service *services.GenerationService
}

func NewSessionHandler(service *services.GenerationService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Get godoc
// @Summary     Current session
// @Description Returns the caller's job slot and the derived view state.
// @Tags        session
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SessionResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /session [get]
func (h *SessionHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse(h.service.Snapshot(userID)))
}

// Reset godoc
// @Summary     Reset UI state
// @Description Clears selected images, originals, the error banner and the viewer. A failed job returns to idle. Safe to call repeatedly.
// @Tags        session
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SessionResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /session/reset [post]
func (h *SessionHandler) Reset(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	state, err := h.service.ResetUIState(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(state))
}

// StartNew godoc
// @Summary     Start a new project
// @Description Resets the UI and forgets the last result.
// @Tags        session
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SessionResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /session/new [post]
func (h *SessionHandler) StartNew(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	state, err := h.service.StartNew(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(state))
}

// Clear godoc
// @Summary     Discard the session
// @Description Returns the session to idle and deletes uploaded objects and local images best-effort.
// @Tags        session
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SessionResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /session [delete]
func (h *SessionHandler) Clear(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	state, err := h.service.ClearAll(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(state))
}

// Viewer godoc
// @Summary     Update viewer state
// @Description Shows or hides the result viewer and moves the image carousel. The index is clamped to the selection.
// @Tags        session
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.ViewerRequest true "Viewer state"
// @Success     200 {object} models.SessionResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /session/viewer [put]
func (h *SessionHandler) Viewer(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.ViewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionResponse(h.service.SetViewer(userID, req)))
}
