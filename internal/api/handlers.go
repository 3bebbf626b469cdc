package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medlabel/internal/service/intake"
	"medlabel/internal/transient"
)

// requestTimeout bounds each pipeline run, and with it every external
// capability call. Expiry surfaces as a capability error.
const requestTimeout = 2 * time.Minute

// Handler wires HTTP routes to the intake pipelines and the shared stores.
type Handler struct {
	intake *intake.Service
	files  *transient.Manager
}

// NewHandler constructs a Handler instance.
func NewHandler(service *intake.Service, files *transient.Manager) *Handler {
	return &Handler{intake: service, files: files}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/process_image", h.processImage)
	api.POST("/process_audio", h.processAudio)
	api.GET("/audio/:name", h.getAudio)
	api.GET("/cards", h.listCards)
}

type imageRequest struct {
	Image string `json:"image"`
}

func (h *Handler) processImage(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	record, err := h.intake.ProcessImage(ctx, req.Image)
	if err != nil {
		h.pipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "image processed",
		"card":    record,
	})
}

func (h *Handler) processAudio(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file part"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.intake.ProcessAudio(ctx, file.Filename, src)
	if err != nil {
		h.pipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"text_response":      result.AnswerText,
		"audio_response_url": "/api/audio/" + result.ResponseName,
	})
}

func (h *Handler) getAudio(c *gin.Context) {
	path, err := h.files.Resolve(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audio not found"})
		return
	}
	c.Header("Content-Type", "audio/mpeg")
	c.File(path)
}

func (h *Handler) listCards(c *gin.Context) {
	rows, err := h.intake.Cards().ListRows()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": rows})
}

// pipelineError maps a pipeline failure to an HTTP status: client-caused
// conditions are 400, capability failures 502, store failures 500.
func (h *Handler) pipelineError(c *gin.Context, err error) {
	var perr *intake.Error
	if !errors.As(err, &perr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusInternalServerError
	switch {
	case perr.ClientCaused():
		status = http.StatusBadRequest
	case perr.Kind == intake.KindStore:
		status = http.StatusInternalServerError
	default:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"error": perr.Error(),
		"stage": string(perr.Stage),
		"kind":  string(perr.Kind),
	})
}
