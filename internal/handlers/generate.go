package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"photo-studio-backend/internal/middleware"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/services"
)

type GenerateHandler struct {
	service *services.GenerationService
}

func NewGenerateHandler(service *services.GenerationService) *GenerateHandler {
	return &GenerateHandler{service: service}
}

// Generate godoc
// @Summary     Start a generation
// @Description Uploads the selected images, submits them with the prompt to the provider and polls until the job finishes.
// @Description The caller's bearer token is forwarded to the job proxy. Only one generation per session runs at a time.
// @Description With wait=true the response is sent once the job is completed or failed.
// @Tags        generate
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       wait query bool false "Block until the job finishes"
// @Param       request body models.GenerateRequest true "Prompt and provider endpoints"
// @Success     200 {object} models.SessionResponse "Finished job (wait=true)"
// @Success     202 {object} models.SessionResponse "Job accepted"
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /session/generate [post]
func (h *GenerateHandler) Generate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}
	wait, _ := strconv.ParseBool(c.Query("wait"))

	state, err := h.service.Generate(c.Request.Context(), userID, middleware.AuthToken(c), req, wait)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusAccepted
	if wait {
		status = http.StatusOK
	}
	c.JSON(status, sessionResponse(state))
}
