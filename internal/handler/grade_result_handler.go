package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-grading-api/internal/dto"
	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/internal/service"
	"github.com/noah-isme/lms-grading-api/pkg/response"
)

type gradeResultService interface {
	CalculateAndSaveResult(ctx context.Context, courseID, studentID int64) (*models.GradeResult, error)
	UpdateFinalExamScore(ctx context.Context, courseID, studentID int64, req dto.FinalExamScoreRequest) (*models.GradeResult, error)
	GetCourseResults(ctx context.Context, courseID int64) ([]models.GradeResultRow, error)
	GetStudentResult(ctx context.Context, courseID, studentID int64) (*dto.StudentGradeResponse, error)
	ColumnAverage(ctx context.Context, columnID, studentID int64) (*dto.ColumnAverageResponse, error)
	RecalculateCourse(ctx context.Context, courseID int64, async bool) (*dto.RecalculationSummary, error)
	NotifyQuizResultChanged(ctx context.Context, courseID int64, req dto.QuizResultChangedRequest) (*dto.QuizResultChangeAck, error)
}

type gradeExportService interface {
	ExportCourseResults(ctx context.Context, courseID int64, format service.ExportFormat) (*service.ExportFile, error)
}

// GradeResultHandler exposes grade result endpoints.
type GradeResultHandler struct {
	results gradeResultService
	exports gradeExportService
}

// NewGradeResultHandler constructs handler.
func NewGradeResultHandler(results gradeResultService, exports gradeExportService) *GradeResultHandler {
	return &GradeResultHandler{results: results, exports: exports}
}

// List godoc
// @Summary List course grade results
// @Description Ordered by student name.
// @Tags Grade Results
// @Produce json
// @Param courseId path int true "Course ID"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/grade-results [get]
func (h *GradeResultHandler) List(c *gin.Context) {
	courseID, err := idParam(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.results.GetCourseResults(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, size := pageParams(c)
	items, pagination := paginate(rows, page, size)
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a student's grade result
// @Tags Grade Results
// @Produce json
// @Param courseId path int true "Course ID"
// @Param studentId path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/grade-results/{studentId} [get]
func (h *GradeResultHandler) Get(c *gin.Context) {
	courseID, studentID, ok := courseStudentParams(c)
	if !ok {
		return
	}
	result, err := h.results.GetStudentResult(c.Request.Context(), courseID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Calculate godoc
// @Summary Calculate and save a student's grade result
// @Tags Grade Results
// @Produce json
// @Param courseId path int true "Course ID"
// @Param studentId path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/{courseId}/grade-results/{studentId}/calculate [post]
func (h *GradeResultHandler) Calculate(c *gin.Context) {
	courseID, studentID, ok := courseStudentParams(c)
	if !ok {
		return
	}
	result, err := h.results.CalculateAndSaveResult(c.Request.Context(), courseID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// FinalExam godoc
// @Summary Set a student's final exam score
// @Tags Grade Results
// @Accept json
// @Produce json
// @Param courseId path int true "Course ID"
// @Param studentId path int true "Student ID"
// @Param payload body dto.FinalExamScoreRequest true "Score on the 0-10 scale"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/grade-results/{studentId}/final-exam [put]
func (h *GradeResultHandler) FinalExam(c *gin.Context) {
	courseID, studentID, ok := courseStudentParams(c)
	if !ok {
		return
	}
	var req dto.FinalExamScoreRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.results.UpdateFinalExamScore(c.Request.Context(), courseID, studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Recalculate godoc
// @Summary Recalculate every result of a course
// @Tags Grade Results
// @Produce json
// @Param courseId path int true "Course ID"
// @Param async query bool false "Queue the work instead of waiting"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /courses/{courseId}/grade-results/recalculate [post]
func (h *GradeResultHandler) Recalculate(c *gin.Context) {
	courseID, err := idParam(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.results.RecalculateCourse(c.Request.Context(), courseID, boolQuery(c, "async"))
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if summary.Queued > 0 {
		status = http.StatusAccepted
	}
	response.JSON(c, status, summary, nil)
}

// ColumnAverage godoc
// @Summary A student's average within one grade column
// @Tags Grade Columns
// @Produce json
// @Param columnId path int true "Column ID"
// @Param studentId path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /grade-columns/{columnId}/students/{studentId}/average [get]
func (h *GradeResultHandler) ColumnAverage(c *gin.Context) {
	columnID, err := idParam(c, "columnId")
	if err != nil {
		response.Error(c, err)
		return
	}
	studentID, err := idParam(c, "studentId")
	if err != nil {
		response.Error(c, err)
		return
	}
	avg, err := h.results.ColumnAverage(c.Request.Context(), columnID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, avg, nil)
}

// QuizResultChanged godoc
// @Summary Notify that a student's quiz result changed
// @Tags Grade Results
// @Accept json
// @Produce json
// @Param courseId path int true "Course ID"
// @Param payload body dto.QuizResultChangedRequest true "Changed result"
// @Success 202 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /courses/{courseId}/quiz-results/changed [post]
func (h *GradeResultHandler) QuizResultChanged(c *gin.Context) {
	courseID, err := idParam(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.QuizResultChangedRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	ack, err := h.results.NotifyQuizResultChanged(c.Request.Context(), courseID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, ack, nil)
}

// Export godoc
// @Summary Export course grade results
// @Tags Grade Results
// @Produce text/csv
// @Produce application/pdf
// @Param courseId path int true "Course ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Router /courses/{courseId}/grade-results/export [get]
func (h *GradeResultHandler) Export(c *gin.Context) {
	courseID, err := idParam(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(service.ExportFormatCSV))))
	file, err := h.exports.ExportCourseResults(c.Request.Context(), courseID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

func courseStudentParams(c *gin.Context) (int64, int64, bool) {
	courseID, err := idParam(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return 0, 0, false
	}
	studentID, err := idParam(c, "studentId")
	if err != nil {
		response.Error(c, err)
		return 0, 0, false
	}
	return courseID, studentID, true
}
