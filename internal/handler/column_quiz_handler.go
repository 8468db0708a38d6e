package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/internal/service"
	"github.com/noah-isme/lms-grading-api/pkg/response"
)

type columnQuizService interface {
	ListForColumn(ctx context.Context, columnID int64) ([]models.ColumnQuiz, error)
	Assign(ctx context.Context, columnID int64, req service.AssignQuizRequest, assignedBy int64) (*models.ColumnQuiz, bool, error)
	Unassign(ctx context.Context, columnID, quizID int64) error
}

// ColumnQuizHandler exposes quiz assignment endpoints.
type ColumnQuizHandler struct {
	assignments columnQuizService
}

// NewColumnQuizHandler constructs handler.
func NewColumnQuizHandler(assignments columnQuizService) *ColumnQuizHandler {
	return &ColumnQuizHandler{assignments: assignments}
}

// List godoc
// @Summary List quizzes assigned to a grade column
// @Tags Column Quizzes
// @Produce json
// @Param columnId path int true "Column ID"
// @Success 200 {object} response.Envelope
// @Router /grade-columns/{columnId}/quizzes [get]
func (h *ColumnQuizHandler) List(c *gin.Context) {
	columnID, err := idParam(c, "columnId")
	if err != nil {
		response.Error(c, err)
		return
	}
	assignments, err := h.assignments.ListForColumn(c.Request.Context(), columnID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Assign godoc
// @Summary Assign quiz to grade column
// @Description Returns 200 with the existing row when the quiz is already assigned to this column.
// @Tags Column Quizzes
// @Accept json
// @Produce json
// @Param columnId path int true "Column ID"
// @Param payload body service.AssignQuizRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /grade-columns/{columnId}/quizzes [post]
func (h *ColumnQuizHandler) Assign(c *gin.Context) {
	columnID, err := idParam(c, "columnId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.AssignQuizRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	var actor int64
	if claims := claimsFromContext(c); claims != nil {
		actor = claims.UserID
	}
	assignment, created, err := h.assignments.Assign(c.Request.Context(), columnID, req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, assignment)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Unassign godoc
// @Summary Remove quiz from grade column
// @Tags Column Quizzes
// @Param columnId path int true "Column ID"
// @Param quizId path int true "Quiz ID"
// @Success 204
// @Router /grade-columns/{columnId}/quizzes/{quizId} [delete]
func (h *ColumnQuizHandler) Unassign(c *gin.Context) {
	columnID, err := idParam(c, "columnId")
	if err != nil {
		response.Error(c, err)
		return
	}
	quizID, err := idParam(c, "quizId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.assignments.Unassign(c.Request.Context(), columnID, quizID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
