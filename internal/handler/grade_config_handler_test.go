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
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type gradeConfigServiceMock struct{}

func (gradeConfigServiceMock) Get(context.Context, int64) (*models.CourseGradeConfig, error) {
	return &models.CourseGradeConfig{ProcessWeight: 50, FinalExamWeight: 50, IsDefault: true}, nil
}

func (gradeConfigServiceMock) Update(_ context.Context, _ int64, req dto.CourseGradeConfigRequest) (*models.CourseGradeConfig, error) {
	if *req.ProcessWeight+*req.FinalExamWeight != 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade config weights must sum to 100")
	}
	return &models.CourseGradeConfig{ProcessWeight: *req.ProcessWeight, FinalExamWeight: *req.FinalExamWeight}, nil
}

func TestGradeConfigHandlerGetDefault(t *testing.T) {
	h := NewGradeConfigHandler(gradeConfigServiceMock{})
	c, w := newTestContext(http.MethodGet, "/courses/1/grade-config", nil, gin.Params{{Key: "courseId", Value: "1"}})

	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	var cfg models.CourseGradeConfig
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &cfg))
	assert.True(t, cfg.IsDefault)
}

func TestGradeConfigHandlerUpdate(t *testing.T) {
	h := NewGradeConfigHandler(gradeConfigServiceMock{})
	params := gin.Params{{Key: "courseId", Value: "1"}}

	c, w := newTestContext(http.MethodPut, "/courses/1/grade-config", map[string]float64{"process_weight": 60, "final_exam_weight": 40}, params)
	h.Update(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext(http.MethodPut, "/courses/1/grade-config", map[string]float64{"process_weight": 60, "final_exam_weight": 30}, params)
	h.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
