package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/services"
)

type HistoryHandler struct {
	service *services.GenerationService
}

func NewHistoryHandler(service *services.GenerationService) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// List godoc
// @Summary     Generation history
// @Description Lists the caller's finished generations, newest first.
// @Tags        jobs
// @Produce     json
// @Security    Bearer
// @Param       limit query int false "Maximum number of jobs (default and maximum 50)"
// @Success     200 {object} models.JobsResponse
// @Failure     503 {object} models.ErrorResponse
// @Router      /jobs [get]
func (h *HistoryHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	jobs, err := h.service.ListJobs(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := models.JobsResponse{Jobs: make([]models.JobSummary, 0, len(jobs))}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, models.JobSummary{
			ID:            job.ID,
			Mode:          job.Mode,
			Prompt:        job.Prompt,
			ImageCount:    job.ImageCount,
			ProviderJobID: job.ProviderJobID,
			Status:        job.Status,
			ResultURL:     job.ResultURL,
			FailureReason: job.FailureReason,
			PollAttempts:  job.PollAttempts,
			StartedAt:     job.StartedAt,
			FinishedAt:    job.FinishedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}
