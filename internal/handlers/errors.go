package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"photo-studio-backend/internal/middleware"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/services"
	"photo-studio-backend/internal/store"
	"photo-studio-backend/internal/workflow"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrGenerationInProgress):
		return http.StatusConflict
	case errors.Is(err, store.ErrImageIndex),
		errors.Is(err, store.ErrNoImages),
		errors.Is(err, workflow.ErrModeImages),
		workflow.KindOf(err) == workflow.KindValidation:
		return http.StatusBadRequest
	case errors.Is(err, services.ErrHistoryUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := models.ErrorResponse{Error: http.StatusText(status), Message: err.Error()}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, resp)
}

// requireUser reads the authenticated user or answers 401.
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return "", false
	}
	return userID, true
}

func sessionResponse(state store.State) models.SessionResponse {
	return models.SessionResponse{
		State: state.Session(),
		View:  store.Derive(state).Response(),
	}
}
