package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

func TestColumnQuizServiceAssign(t *testing.T) {
	db := newGradebookDB()
	db.addCourse(1)
	col := db.addColumn(1, "Midterm", 40, 1)
	quiz := db.addQuiz(1, "Quiz 1")
	svc := newServices(db)
	ctx := context.Background()

	assignment, created, err := svc.quizzes.Assign(ctx, col.ID, AssignQuizRequest{QuizID: quiz.ID, WeightOverride: ptrFloat(25)}, 9)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Quiz 1", assignment.QuizTitle)
	require.NotNil(t, assignment.AssignedBy)
	assert.Equal(t, int64(9), *assignment.AssignedBy)

	again, created, err := svc.quizzes.Assign(ctx, col.ID, AssignQuizRequest{QuizID: quiz.ID}, 9)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, assignment.ID, again.ID)
	assert.Len(t, db.assignments, 1)

	listed, err := svc.quizzes.ListForColumn(ctx, col.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, quiz.ID, listed[0].QuizID)
}

func TestColumnQuizServiceAssignCrossCourse(t *testing.T) {
	db := newGradebookDB()
	db.addCourse(1)
	db.addCourse(2)
	col := db.addColumn(1, "Midterm", 40, 1)
	foreign := db.addQuiz(2, "Other course quiz")
	svc := newServices(db)

	_, _, err := svc.quizzes.Assign(context.Background(), col.ID, AssignQuizRequest{QuizID: foreign.ID}, 0)
	require.ErrorIs(t, err, appErrors.ErrCrossCourse)
	assert.Equal(t, 422, appErrors.FromError(err).Status)
	assert.Empty(t, db.assignments)
}

func TestColumnQuizServiceAssignConflictsAcrossColumns(t *testing.T) {
	db := newGradebookDB()
	db.addCourse(1)
	first := db.addColumn(1, "Midterm", 40, 1)
	second := db.addColumn(1, "Lab", 40, 2)
	quiz := db.addQuiz(1, "Quiz 1")
	db.assign(first.ID, quiz.ID)
	svc := newServices(db)

	_, _, err := svc.quizzes.Assign(context.Background(), second.ID, AssignQuizRequest{QuizID: quiz.ID}, 0)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestColumnQuizServiceAssignValidation(t *testing.T) {
	db := newGradebookDB()
	db.addCourse(1)
	col := db.addColumn(1, "Midterm", 40, 1)
	quiz := db.addQuiz(1, "Quiz 1")
	svc := newServices(db)
	ctx := context.Background()

	_, _, err := svc.quizzes.Assign(ctx, col.ID, AssignQuizRequest{QuizID: quiz.ID, WeightOverride: ptrFloat(120)}, 0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = svc.quizzes.Assign(ctx, 999, AssignQuizRequest{QuizID: quiz.ID}, 0)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, _, err = svc.quizzes.Assign(ctx, col.ID, AssignQuizRequest{QuizID: 999}, 0)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	db.columns[col.ID].State = models.ColumnStateDeactivated
	_, _, err = svc.quizzes.Assign(ctx, col.ID, AssignQuizRequest{QuizID: quiz.ID}, 0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestColumnQuizServiceUnassignMarksStale(t *testing.T) {
	db := newGradebookDB()
	db.addCourse(1)
	col := db.addColumn(1, "Midterm", 40, 1)
	quiz := db.addQuiz(1, "Quiz 1")
	db.assign(col.ID, quiz.ID)
	db.results[resultKey{1, 7}] = &models.GradeResult{CourseID: 1, StudentID: 7, Status: models.ResultStatusComputed, ProcessAverage: ptrFloat(3.2)}
	svc := newServices(db)
	ctx := context.Background()

	require.NoError(t, svc.quizzes.Unassign(ctx, col.ID, quiz.ID))
	assert.Empty(t, db.assignments)
	stale := db.results[resultKey{1, 7}]
	assert.Equal(t, models.ResultStatusStale, stale.Status)
	assert.Equal(t, 3.2, *stale.ProcessAverage, "scores stay until the next calculation")

	err := svc.quizzes.Unassign(ctx, col.ID, quiz.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
