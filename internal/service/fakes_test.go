package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type resultKey struct{ course, student int64 }

// gradebookDB is an in-memory stand-in for the grading tables.
type gradebookDB struct {
	courses     map[int64]*models.Course
	columns     map[int64]*models.GradeColumn
	quizzes     map[int64]*models.Quiz
	assignments []*models.ColumnQuiz
	quizResults []models.QuizResult
	results     map[resultKey]*models.GradeResult
	students    map[int64]string

	nextID   int64
	locks    []int64
	failWith error
}

func newGradebookDB() *gradebookDB {
	return &gradebookDB{
		courses:  make(map[int64]*models.Course),
		columns:  make(map[int64]*models.GradeColumn),
		quizzes:  make(map[int64]*models.Quiz),
		results:  make(map[resultKey]*models.GradeResult),
		students: make(map[int64]string),
		nextID:   100,
	}
}

func (db *gradebookDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *gradebookDB) addCourse(id int64) *models.Course {
	c := &models.Course{ID: id, Code: fmt.Sprintf("CS%d", id), Name: "Course"}
	db.courses[id] = c
	return c
}

func (db *gradebookDB) addColumn(courseID int64, name string, weight float64, order int) *models.GradeColumn {
	col := &models.GradeColumn{ID: db.id(), CourseID: courseID, Name: name, WeightPercentage: weight, Order: order, State: models.ColumnStateActive}
	db.columns[col.ID] = col
	return col
}

func (db *gradebookDB) addQuiz(courseID int64, title string) *models.Quiz {
	q := &models.Quiz{ID: db.id(), CourseID: courseID, Title: title}
	db.quizzes[q.ID] = q
	return q
}

func (db *gradebookDB) assign(columnID, quizID int64) {
	db.assignments = append(db.assignments, &models.ColumnQuiz{ID: db.id(), GradeColumnID: columnID, QuizID: quizID, AssignedAt: time.Now()})
}

func (db *gradebookDB) score(studentID, quizID int64, score float64) {
	db.quizResults = append(db.quizResults, models.QuizResult{ID: db.id(), QuizID: quizID, StudentID: studentID, Score: score, SubmittedAt: time.Now()})
}

type stubTx struct{ calls int }

func (s *stubTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.calls++
	return fn(ctx)
}

type fakeCourses struct{ db *gradebookDB }

func (f fakeCourses) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	c, ok := f.db.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (f fakeCourses) LockByID(ctx context.Context, id int64) (*models.Course, error) {
	f.db.locks = append(f.db.locks, id)
	return f.FindByID(ctx, id)
}

func (f fakeCourses) UpdateGradeConfig(ctx context.Context, id int64, processWeight, finalExamWeight float64) error {
	c, ok := f.db.courses[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.ProcessWeight, c.FinalExamWeight = &processWeight, &finalExamWeight
	return nil
}

type fakeColumns struct{ db *gradebookDB }

func (f fakeColumns) ListByCourse(ctx context.Context, courseID int64, includeInactive bool) ([]models.GradeColumn, error) {
	if f.db.failWith != nil {
		return nil, f.db.failWith
	}
	var out []models.GradeColumn
	for _, c := range f.db.columns {
		if c.CourseID == courseID && (includeInactive || c.Active()) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order == out[j].Order {
			return out[i].ID < out[j].ID
		}
		return out[i].Order < out[j].Order
	})
	return out, nil
}

func (f fakeColumns) FindByID(ctx context.Context, id int64) (*models.GradeColumn, error) {
	c, ok := f.db.columns[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (f fakeColumns) SumActiveWeights(ctx context.Context, courseID, excludeID int64) (float64, error) {
	var total float64
	for _, c := range f.db.columns {
		if c.CourseID == courseID && c.Active() && c.ID != excludeID {
			total += c.WeightPercentage
		}
	}
	return total, nil
}

func (f fakeColumns) OrderTaken(ctx context.Context, courseID int64, order int, excludeID int64) (bool, error) {
	for _, c := range f.db.columns {
		if c.CourseID == courseID && c.Active() && c.Order == order && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeColumns) Create(ctx context.Context, column *models.GradeColumn) error {
	column.ID = f.db.id()
	cp := *column
	f.db.columns[column.ID] = &cp
	return nil
}

func (f fakeColumns) Update(ctx context.Context, column *models.GradeColumn) error {
	if _, ok := f.db.columns[column.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *column
	f.db.columns[column.ID] = &cp
	return nil
}

func (f fakeColumns) SetState(ctx context.Context, id int64, state models.ColumnState) error {
	c, ok := f.db.columns[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.State = state
	return nil
}

type fakeQuizzes struct{ db *gradebookDB }

func (f fakeQuizzes) FindByID(ctx context.Context, id int64) (*models.Quiz, error) {
	q, ok := f.db.quizzes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

type fakeAssignments struct{ db *gradebookDB }

func (f fakeAssignments) FindByQuiz(ctx context.Context, quizID int64) (*models.ColumnQuiz, error) {
	for _, a := range f.db.assignments {
		if a.QuizID == quizID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeAssignments) ListByColumn(ctx context.Context, columnID int64) ([]models.ColumnQuiz, error) {
	var out []models.ColumnQuiz
	for _, a := range f.db.assignments {
		if a.GradeColumnID == columnID {
			cp := *a
			if q, ok := f.db.quizzes[a.QuizID]; ok {
				cp.QuizTitle = q.Title
			}
			out = append(out, cp)
		}
	}
	return out, nil
}

func (f fakeAssignments) QuizIDsByColumn(ctx context.Context, columnID int64) ([]int64, error) {
	var ids []int64
	for _, a := range f.db.assignments {
		if a.GradeColumnID == columnID {
			ids = append(ids, a.QuizID)
		}
	}
	return ids, nil
}

func (f fakeAssignments) Create(ctx context.Context, assignment *models.ColumnQuiz) error {
	for _, a := range f.db.assignments {
		if a.QuizID == assignment.QuizID {
			return appErrors.Clone(appErrors.ErrConflict, "quiz already assigned to a grade column")
		}
	}
	assignment.ID = f.db.id()
	assignment.AssignedAt = time.Now()
	cp := *assignment
	f.db.assignments = append(f.db.assignments, &cp)
	return nil
}

func (f fakeAssignments) Delete(ctx context.Context, columnID, quizID int64) error {
	for i, a := range f.db.assignments {
		if a.GradeColumnID == columnID && a.QuizID == quizID {
			f.db.assignments = append(f.db.assignments[:i], f.db.assignments[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeQuizResults struct{ db *gradebookDB }

func (f fakeQuizResults) ListLatestByStudent(ctx context.Context, studentID int64, quizIDs []int64) ([]models.QuizResult, error) {
	wanted := make(map[int64]struct{}, len(quizIDs))
	for _, id := range quizIDs {
		wanted[id] = struct{}{}
	}
	latest := make(map[int64]models.QuizResult)
	for _, r := range f.db.quizResults {
		if r.StudentID != studentID {
			continue
		}
		if _, ok := wanted[r.QuizID]; !ok {
			continue
		}
		if prev, ok := latest[r.QuizID]; !ok || !r.SubmittedAt.Before(prev.SubmittedAt) {
			latest[r.QuizID] = r
		}
	}
	out := make([]models.QuizResult, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuizID < out[j].QuizID })
	return out, nil
}

func (f fakeQuizResults) ListStudentIDsByCourse(ctx context.Context, courseID int64) ([]int64, error) {
	seen := make(map[int64]struct{})
	for _, r := range f.db.quizResults {
		if q, ok := f.db.quizzes[r.QuizID]; ok && q.CourseID == courseID {
			seen[r.StudentID] = struct{}{}
		}
	}
	for k := range f.db.results {
		if k.course == courseID {
			seen[k.student] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakeResults struct{ db *gradebookDB }

func (f fakeResults) Find(ctx context.Context, courseID, studentID int64) (*models.GradeResult, error) {
	r, ok := f.db.results[resultKey{courseID, studentID}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (f fakeResults) FindForUpdate(ctx context.Context, courseID, studentID int64) (*models.GradeResult, error) {
	return f.Find(ctx, courseID, studentID)
}

func (f fakeResults) Upsert(ctx context.Context, result *models.GradeResult) error {
	key := resultKey{result.CourseID, result.StudentID}
	if existing, ok := f.db.results[key]; ok {
		result.ID = existing.ID
		result.CreatedAt = existing.CreatedAt
		result.FinalExamScore = existing.FinalExamScore
	} else {
		result.ID = f.db.id()
		result.CreatedAt = time.Now()
	}
	cp := *result
	f.db.results[key] = &cp
	return nil
}

func (f fakeResults) UpdateFinalExam(ctx context.Context, result *models.GradeResult) error {
	key := resultKey{result.CourseID, result.StudentID}
	if _, ok := f.db.results[key]; !ok {
		return sql.ErrNoRows
	}
	cp := *result
	f.db.results[key] = &cp
	return nil
}

func (f fakeResults) MarkStale(ctx context.Context, courseID, studentID int64) (int64, error) {
	r, ok := f.db.results[resultKey{courseID, studentID}]
	if !ok {
		return 0, nil
	}
	r.Status = models.ResultStatusStale
	return 1, nil
}

func (f fakeResults) MarkCourseStale(ctx context.Context, courseID int64) (int64, error) {
	var n int64
	for k, r := range f.db.results {
		if k.course == courseID {
			r.Status = models.ResultStatusStale
			n++
		}
	}
	return n, nil
}

func (f fakeResults) ListByCourse(ctx context.Context, courseID int64) ([]models.GradeResultRow, error) {
	var rows []models.GradeResultRow
	for k, r := range f.db.results {
		if k.course == courseID {
			rows = append(rows, models.GradeResultRow{GradeResult: *r, StudentName: f.db.students[k.student]})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].StudentName < rows[j].StudentName })
	return rows, nil
}

type services struct {
	db       *gradebookDB
	tx       *stubTx
	columns  *GradeColumnService
	quizzes  *ColumnQuizService
	results  *GradeResultService
	configs  *GradeConfigService
	averager *ColumnAverager
	cache    *CacheService
	metrics  *MetricsService
}

func newServices(db *gradebookDB) *services {
	tx := &stubTx{}
	metrics := NewMetricsService()
	cache := NewCacheService(newMemoryCache(), metrics, time.Minute, nil, true)
	averager := NewColumnAverager(fakeAssignments{db}, fakeQuizResults{db})
	return &services{
		db:       db,
		tx:       tx,
		averager: averager,
		cache:    cache,
		metrics:  metrics,
		columns:  NewGradeColumnService(tx, fakeCourses{db}, fakeColumns{db}, fakeResults{db}, NewWeightValidator(fakeColumns{db}), cache, nil, nil),
		quizzes:  NewColumnQuizService(tx, fakeColumns{db}, fakeQuizzes{db}, fakeAssignments{db}, fakeResults{db}, cache, nil, nil),
		configs:  NewGradeConfigService(tx, fakeCourses{db}, fakeResults{db}, cache, nil, nil),
		results: NewGradeResultService(GradeResultDeps{
			Tx:          tx,
			Courses:     fakeCourses{db},
			Columns:     fakeColumns{db},
			Results:     fakeResults{db},
			Students:    fakeQuizResults{db},
			Quizzes:     fakeQuizzes{db},
			Assignments: fakeAssignments{db},
			Averager:    averager,
			Cache:       cache,
			Metrics:     metrics,
		}),
	}
}

func ptrFloat(v float64) *float64 { return &v }

func ptrInt(v int) *int { return &v }

func ptrString(v string) *string { return &v }
