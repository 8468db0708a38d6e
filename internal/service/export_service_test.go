package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

func newExportServiceForTest(t *testing.T, enabled bool) (*ExportService, *gradebookDB) {
	t.Helper()
	db := newGradebookDB()
	_, _, midQuiz, labQuiz := twoColumnCourse(db)
	db.courses[1].Code = "CS 101"
	db.students[student] = "Budi"
	db.score(student, midQuiz.ID, 8)
	db.score(student, labQuiz.ID, 6)
	svcs := newServices(db)
	_, err := svcs.results.CalculateAndSaveResult(context.Background(), 1, student)
	require.NoError(t, err)

	svc := NewExportService(fakeCourses{db}, fakeColumns{db}, svcs.results, enabled, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc, db
}

func TestExportServiceCSV(t *testing.T) {
	svc, _ := newExportServiceForTest(t, true)

	file, err := svc.ExportCourseResults(context.Background(), 1, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "grades_CS_101_20260102_030405.csv", file.Filename)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Student,Email,Midterm (40.00%),Final-lab (60.00%),Process Average,Final Exam,Total,Grade", lines[0])
	assert.Equal(t, "Budi,,8.00,6.00,6.80,,,", lines[1])
}

func TestExportServicePDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t, true)

	file, err := svc.ExportCourseResults(context.Background(), 1, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF-")))
}

func TestExportServiceRejects(t *testing.T) {
	svc, _ := newExportServiceForTest(t, true)
	_, err := svc.ExportCourseResults(context.Background(), 1, ExportFormat("xlsx"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.ExportCourseResults(context.Background(), 404, ExportFormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	disabled, _ := newExportServiceForTest(t, false)
	_, err = disabled.ExportCourseResults(context.Background(), 1, ExportFormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "", formatScore(nil))
	assert.Equal(t, "7.90", formatScore(ptrFloat(7.9)))
	assert.Equal(t, "8.44", sanitizeFilename("8.44"))
	assert.Equal(t, "a-b_c", sanitizeFilename(" a/b c "))
}
