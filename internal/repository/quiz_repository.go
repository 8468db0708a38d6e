package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/pkg/database"
)

// QuizRepository reads quizzes owned by courses.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository creates a repository instance.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// FindByID returns a quiz by ID.
func (r *QuizRepository) FindByID(ctx context.Context, id int64) (*models.Quiz, error) {
	const query = `SELECT id, course_id, title, created_at FROM quizzes WHERE id = $1`
	var quiz models.Quiz
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &quiz, query, id); err != nil {
		return nil, err
	}
	return &quiz, nil
}
