package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/services"
	"photo-studio-backend/internal/storage"
)

const maxUploadMemory = 32 << 20

type ImagesHandler struct {
	service  *services.GenerationService
	imageDir string
	logger   zerolog.Logger
}

func NewImagesHandler(service *services.GenerationService, imageDir string, logger zerolog.Logger) *ImagesHandler {
	return &ImagesHandler{service: service, imageDir: imageDir, logger: logger}
}

// Select godoc
// @Summary     Select images
// @Description Stores the uploaded files locally and makes them the session's selection. Without append the UI state is reset first.
// @Description mode=single takes exactly one file; mode=multi keeps the files in upload order.
// @Tags        images
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       images formData file true "Images (multiple files allowed in multi mode)"
// @Param       mode formData string false "single or multi (default: single for one file, multi otherwise)"
// @Param       append formData bool false "Append to the current multi-image selection"
// @Success     200 {object} models.SessionResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /session/images [post]
func (h *ImagesHandler) Select(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse multipart form",
			Message: err.Error(),
		})
		return
	}
	form := c.Request.MultipartForm
	if form == nil || len(form.File["images"]) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "no images provided"})
		return
	}
	files := form.File["images"]

	defaultMode := models.ModeSingle
	if len(files) > 1 {
		defaultMode = models.ModeMulti
	}
	mode := models.ParseMode(c.PostForm("mode"), defaultMode)
	appendImages, _ := strconv.ParseBool(c.PostForm("append"))

	uris := make([]string, 0, len(files))
	for _, fh := range files {
		uri, err := h.save(userID, fh)
		if err != nil {
			h.discard(uris)
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "failed to store image",
				Message: err.Error(),
			})
			return
		}
		uris = append(uris, uri)
	}

	state, err := h.service.SelectImages(userID, mode, uris, appendImages)
	if err != nil {
		h.discard(uris)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(state))
}

// Remove godoc
// @Summary     Remove an image
// @Description Removes one image from the selection. Later images move down by one.
// @Tags        images
// @Produce     json
// @Security    Bearer
// @Param       index path int true "Image index"
// @Success     200 {object} models.SessionResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /session/images/{index} [delete]
func (h *ImagesHandler) Remove(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid image index"})
		return
	}
	state, err := h.service.RemoveImage(userID, index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(state))
}

// save writes one upload to <imageDir>/<user>/<uuid>.<ext> and returns its
// file:// URI. Only image content is accepted.
func (h *ImagesHandler) save(userID string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}

	contentType, ext := storage.DetectContent(fh.Filename, data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", fh.Filename, contentType)
	}

	dir := filepath.Join(h.imageDir, userDirName(userID))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+"."+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", fh.Filename, err)
	}
	return "file://" + path, nil
}

func (h *ImagesHandler) discard(uris []string) {
	for _, uri := range uris {
		if err := storage.RemoveLocalFile(uri); err != nil {
			h.logger.Warn().Err(err).Str("uri", uri).Msg("failed to remove local image")
		}
	}
}

func userDirName(userID string) string {
	name := filepath.Base(filepath.Clean("/" + userID))
	if name == "/" || name == "." {
		return "anonymous"
	}
	return name
}
