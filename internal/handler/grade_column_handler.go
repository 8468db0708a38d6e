package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/internal/service"
	"github.com/noah-isme/lms-grading-api/pkg/response"
)

type gradeColumnService interface {
	List(ctx context.Context, courseID int64, includeInactive bool) ([]models.GradeColumn, error)
	ValidateWeightTotal(ctx context.Context, courseID, excludeColumnID int64) (*models.WeightCheck, error)
	Create(ctx context.Context, courseID int64, req service.CreateGradeColumnRequest) (*models.GradeColumn, error)
	Update(ctx context.Context, columnID int64, req service.UpdateGradeColumnRequest) (*models.GradeColumn, error)
	Deactivate(ctx context.Context, columnID int64) (*models.GradeColumn, error)
	Activate(ctx context.Context, columnID int64) (*models.GradeColumn, error)
}

// GradeColumnHandler exposes grade column endpoints.
type GradeColumnHandler struct {
	columns gradeColumnService
}

// NewGradeColumnHandler constructs handler.
func NewGradeColumnHandler(columns gradeColumnService) *GradeColumnHandler {
	return &GradeColumnHandler{columns: columns}
}

// List godoc
// @Summary List grade columns of a course
// @Tags Grade Columns
// @Produce json
// @Param courseId path int true "Course ID"
// @Param includeInactive query bool false "Include deactivated columns"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{courseId}/grade-columns [get]
func (h *GradeColumnHandler) List(c *gin.Context) {
	courseID, err := idParam(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	columns, err := h.columns.List(c.Request.Context(), courseID, boolQuery(c, "includeInactive"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, columns, nil)
}

// Create godoc
// @Summary Create grade column
// @Tags Grade Columns
// @Accept json
// @Produce json
// @Param courseId path int true "Course ID"
// @Param payload body service.CreateGradeColumnRequest true "Column payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{courseId}/grade-columns [post]
func (h *GradeColumnHandler) Create(c *gin.Context) {
	courseID, err := idParam(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateGradeColumnRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	column, err := h.columns.Create(c.Request.Context(), courseID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, column)
}

// WeightTotal godoc
// @Summary Sum active column weights
// @Tags Grade Columns
// @Produce json
// @Param courseId path int true "Course ID"
// @Param excludeColumnId query int false "Column left out of the sum"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/grade-columns/weight-total [get]
func (h *GradeColumnHandler) WeightTotal(c *gin.Context) {
	courseID, err := idParam(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	exclude, err := idQuery(c, "excludeColumnId")
	if err != nil {
		response.Error(c, err)
		return
	}
	check, err := h.columns.ValidateWeightTotal(c.Request.Context(), courseID, exclude)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}

// Update godoc
// @Summary Update grade column
// @Tags Grade Columns
// @Accept json
// @Produce json
// @Param columnId path int true "Column ID"
// @Param payload body service.UpdateGradeColumnRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /grade-columns/{columnId} [put]
func (h *GradeColumnHandler) Update(c *gin.Context) {
	columnID, err := idParam(c, "columnId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateGradeColumnRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	column, err := h.columns.Update(c.Request.Context(), columnID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, column, nil)
}

// Deactivate godoc
// @Summary Deactivate grade column
// @Tags Grade Columns
// @Produce json
// @Param columnId path int true "Column ID"
// @Success 200 {object} response.Envelope
// @Router /grade-columns/{columnId}/deactivate [post]
func (h *GradeColumnHandler) Deactivate(c *gin.Context) {
	h.transition(c, h.columns.Deactivate)
}

// Activate godoc
// @Summary Reactivate grade column
// @Tags Grade Columns
// @Produce json
// @Param columnId path int true "Column ID"
// @Success 200 {object} response.Envelope
// @Router /grade-columns/{columnId}/activate [post]
func (h *GradeColumnHandler) Activate(c *gin.Context) {
	h.transition(c, h.columns.Activate)
}

func (h *GradeColumnHandler) transition(c *gin.Context, fn func(context.Context, int64) (*models.GradeColumn, error)) {
	columnID, err := idParam(c, "columnId")
	if err != nil {
		response.Error(c, err)
		return
	}
	column, err := fn(c.Request.Context(), columnID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, column, nil)
}
