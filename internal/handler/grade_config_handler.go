package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-grading-api/internal/dto"
	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/pkg/response"
)

type gradeConfigService interface {
	Get(ctx context.Context, courseID int64) (*models.CourseGradeConfig, error)
	Update(ctx context.Context, courseID int64, req dto.CourseGradeConfigRequest) (*models.CourseGradeConfig, error)
}

// GradeConfigHandler exposes the process/final exam blend of a course.
type GradeConfigHandler struct {
	configs gradeConfigService
}

// NewGradeConfigHandler constructs handler.
func NewGradeConfigHandler(configs gradeConfigService) *GradeConfigHandler {
	return &GradeConfigHandler{configs: configs}
}

// Get godoc
// @Summary Get course grade configuration
// @Description Courses without a stored configuration report the 50/50 default.
// @Tags Grade Configs
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/grade-config [get]
func (h *GradeConfigHandler) Get(c *gin.Context) {
	courseID, err := idParam(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	config, err := h.configs.Get(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, config, nil)
}

// Update godoc
// @Summary Update course grade configuration
// @Tags Grade Configs
// @Accept json
// @Produce json
// @Param courseId path int true "Course ID"
// @Param payload body dto.CourseGradeConfigRequest true "Weights summing to 100"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/{courseId}/grade-config [put]
func (h *GradeConfigHandler) Update(c *gin.Context) {
	courseID, err := idParam(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CourseGradeConfigRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	config, err := h.configs.Update(c.Request.Context(), courseID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, config, nil)
}
