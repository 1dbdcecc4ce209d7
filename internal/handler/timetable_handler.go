package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timely/timetabling/internal/service"
	appErrors "github.com/timely/timetabling/pkg/errors"
	"github.com/timely/timetabling/pkg/model"
	"github.com/timely/timetabling/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, request model.Request) (model.Result, error)
}

// TimetableHandler exposes the timetable generation endpoint.
type TimetableHandler struct {
	service timetableGenerator
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate builds a weekly schedule from the posted request.
func (h *TimetableHandler) Generate(c *gin.Context) {
	var request model.Request
	if err := c.ShouldBindJSON(&request); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable payload: "+err.Error()))
		return
	}

	result, err := h.service.Generate(c.Request.Context(), request)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Schedule(c, result.Schedule, result.Trail)
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NotFound answers unmatched routes with the error envelope.
func NotFound(c *gin.Context) {
	response.Error(c, appErrors.ErrNotFound)
}

// Register mounts the timetable routes.
func Register(router gin.IRoutes, h *TimetableHandler, metrics http.Handler) {
	router.GET("/health", Health)
	router.POST("/generate-timetable", h.Generate)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
}
