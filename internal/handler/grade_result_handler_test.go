package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grading-api/internal/dto"
	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/internal/service"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type gradeResultServiceMock struct {
	rows       []models.GradeResultRow
	calcErr    error
	finalScore float64
	async      bool
	notified   dto.QuizResultChangedRequest
}

func (m *gradeResultServiceMock) CalculateAndSaveResult(_ context.Context, courseID, studentID int64) (*models.GradeResult, error) {
	if m.calcErr != nil {
		return nil, m.calcErr
	}
	grade := models.GradeB
	return &models.GradeResult{CourseID: courseID, StudentID: studentID, Grade: &grade, Status: models.ResultStatusComputed}, nil
}

func (m *gradeResultServiceMock) UpdateFinalExamScore(_ context.Context, courseID, studentID int64, req dto.FinalExamScoreRequest) (*models.GradeResult, error) {
	m.finalScore = *req.Score
	return &models.GradeResult{CourseID: courseID, StudentID: studentID, FinalExamScore: req.Score}, nil
}

func (m *gradeResultServiceMock) GetCourseResults(context.Context, int64) ([]models.GradeResultRow, error) {
	return m.rows, nil
}

func (m *gradeResultServiceMock) GetStudentResult(_ context.Context, courseID, studentID int64) (*dto.StudentGradeResponse, error) {
	return &dto.StudentGradeResponse{CourseID: courseID, StudentID: studentID, Status: models.ResultStatusUncomputed}, nil
}

func (m *gradeResultServiceMock) ColumnAverage(_ context.Context, columnID, studentID int64) (*dto.ColumnAverageResponse, error) {
	avg := 7.5
	return &dto.ColumnAverageResponse{ColumnID: columnID, StudentID: studentID, Average: &avg, QuizCount: 2, ResultCount: 2}, nil
}

func (m *gradeResultServiceMock) RecalculateCourse(_ context.Context, courseID int64, async bool) (*dto.RecalculationSummary, error) {
	m.async = async
	summary := &dto.RecalculationSummary{CourseID: courseID, Students: 3}
	if async {
		summary.Queued = 3
	} else {
		summary.Computed = 3
	}
	return summary, nil
}

func (m *gradeResultServiceMock) NotifyQuizResultChanged(_ context.Context, courseID int64, req dto.QuizResultChangedRequest) (*dto.QuizResultChangeAck, error) {
	m.notified = req
	return &dto.QuizResultChangeAck{CourseID: courseID, StudentID: req.StudentID, QuizID: req.QuizID, Contributing: true, MarkedStale: true}, nil
}

type exportServiceMock struct {
	format service.ExportFormat
	err    error
}

func (m *exportServiceMock) ExportCourseResults(_ context.Context, _ int64, format service.ExportFormat) (*service.ExportFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.format = format
	return &service.ExportFile{Filename: "grades_CS101_20261014_090000.csv", ContentType: "text/csv", Data: []byte("Student,Grade\n")}, nil
}

func courseStudent(course, student string) gin.Params {
	return gin.Params{{Key: "courseId", Value: course}, {Key: "studentId", Value: student}}
}

func TestGradeResultHandlerListPaginates(t *testing.T) {
	rows := make([]models.GradeResultRow, 5)
	for i := range rows {
		rows[i].StudentID = int64(i + 1)
	}
	h := NewGradeResultHandler(&gradeResultServiceMock{rows: rows}, &exportServiceMock{})
	c, w := newTestContext(http.MethodGet, "/courses/1/grade-results?page=2&pageSize=2", nil, gin.Params{{Key: "courseId", Value: "1"}})

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	var page []models.GradeResultRow
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].StudentID)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 5, env.Pagination.TotalCount)
}

func TestGradeResultHandlerCalculate(t *testing.T) {
	h := NewGradeResultHandler(&gradeResultServiceMock{}, &exportServiceMock{})
	c, w := newTestContext(http.MethodPost, "/courses/1/grade-results/7/calculate", nil, courseStudent("1", "7"))

	h.Calculate(c)
	require.Equal(t, http.StatusOK, w.Code)
	var result models.GradeResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.Equal(t, models.GradeB, *result.Grade)

	h = NewGradeResultHandler(&gradeResultServiceMock{calcErr: appErrors.Clone(appErrors.ErrValidation, "no grade columns")}, &exportServiceMock{})
	c, w = newTestContext(http.MethodPost, "/courses/1/grade-results/7/calculate", nil, courseStudent("1", "7"))
	h.Calculate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodPost, "/courses/1/grade-results/x/calculate", nil, courseStudent("1", "x"))
	h.Calculate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGradeResultHandlerFinalExam(t *testing.T) {
	mock := &gradeResultServiceMock{}
	h := NewGradeResultHandler(mock, &exportServiceMock{})
	c, w := newTestContext(http.MethodPut, "/courses/1/grade-results/7/final-exam", map[string]float64{"score": 8.5}, courseStudent("1", "7"))

	h.FinalExam(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 8.5, mock.finalScore)
}

func TestGradeResultHandlerGetUncomputed(t *testing.T) {
	h := NewGradeResultHandler(&gradeResultServiceMock{}, &exportServiceMock{})
	c, w := newTestContext(http.MethodGet, "/courses/1/grade-results/7", nil, courseStudent("1", "7"))

	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.StudentGradeResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.Equal(t, models.ResultStatusUncomputed, resp.Status)
	assert.Nil(t, resp.Result)
}

func TestGradeResultHandlerRecalculate(t *testing.T) {
	mock := &gradeResultServiceMock{}
	h := NewGradeResultHandler(mock, &exportServiceMock{})

	c, w := newTestContext(http.MethodPost, "/courses/1/grade-results/recalculate", nil, gin.Params{{Key: "courseId", Value: "1"}})
	h.Recalculate(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, mock.async)

	c, w = newTestContext(http.MethodPost, "/courses/1/grade-results/recalculate?async=true", nil, gin.Params{{Key: "courseId", Value: "1"}})
	h.Recalculate(c)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, mock.async)
}

func TestGradeResultHandlerColumnAverage(t *testing.T) {
	h := NewGradeResultHandler(&gradeResultServiceMock{}, &exportServiceMock{})
	c, w := newTestContext(http.MethodGet, "/grade-columns/3/students/7/average", nil, gin.Params{{Key: "columnId", Value: "3"}, {Key: "studentId", Value: "7"}})

	h.ColumnAverage(c)
	require.Equal(t, http.StatusOK, w.Code)
	var avg dto.ColumnAverageResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &avg))
	assert.Equal(t, 7.5, *avg.Average)
}

func TestGradeResultHandlerQuizResultChanged(t *testing.T) {
	mock := &gradeResultServiceMock{}
	h := NewGradeResultHandler(mock, &exportServiceMock{})
	c, w := newTestContext(http.MethodPost, "/courses/1/quiz-results/changed", map[string]int64{"quiz_id": 4, "student_id": 7}, gin.Params{{Key: "courseId", Value: "1"}})

	h.QuizResultChanged(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, dto.QuizResultChangedRequest{QuizID: 4, StudentID: 7}, mock.notified)
}

func TestGradeResultHandlerExport(t *testing.T) {
	exports := &exportServiceMock{}
	h := NewGradeResultHandler(&gradeResultServiceMock{}, exports)
	c, w := newTestContext(http.MethodGet, "/courses/1/grade-results/export?format=CSV", nil, gin.Params{{Key: "courseId", Value: "1"}})

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatCSV, exports.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="grades_CS101_20261014_090000.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Student,Grade\n", w.Body.String())
}

func TestGradeResultHandlerExportDisabled(t *testing.T) {
	h := NewGradeResultHandler(&gradeResultServiceMock{}, &exportServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "grade exports are disabled")})
	c, w := newTestContext(http.MethodGet, "/courses/1/grade-results/export", nil, gin.Params{{Key: "courseId", Value: "1"}})

	h.Export(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
