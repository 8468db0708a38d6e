package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
	"github.com/noah-isme/lms-grading-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type courseResultsLister interface {
	GetCourseResults(ctx context.Context, courseID int64) ([]models.GradeResultRow, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered gradebook ready to be streamed to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a course gradebook as CSV or PDF.
type ExportService struct {
	courses courseReader
	columns activeColumnLister
	results courseResultsLister
	csv     csvRenderer
	pdf     pdfRenderer
	enabled bool
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(courses courseReader, columns activeColumnLister, results courseResultsLister, enabled bool, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		courses: courses,
		columns: columns,
		results: results,
		csv:     csv,
		pdf:     pdf,
		enabled: enabled,
		logger:  logger,
		now:     time.Now,
	}
}

// ExportCourseResults renders one row per student: name, one cell per active
// column average, process average, final exam, total and grade.
func (s *ExportService) ExportCourseResults(ctx context.Context, courseID int64, format ExportFormat) (*ExportFile, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grade exports are disabled")
	}
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	columns, err := s.columns.ListByCourse(ctx, courseID, false)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list grade columns")
	}
	rows, err := s.results.GetCourseResults(ctx, courseID)
	if err != nil {
		return nil, err
	}

	dataset := buildGradebook(course, columns, rows)
	file := &ExportFile{Filename: s.filename(course, format)}
	switch format {
	case ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Data, err = s.pdf.Render(dataset)
	default:
		file.ContentType = "text/csv"
		file.Data, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render grade export")
	}
	s.logger.Info("grade results exported",
		zap.Int64("course_id", courseID),
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)),
	)
	return file, nil
}

func buildGradebook(course *models.Course, columns []models.GradeColumn, rows []models.GradeResultRow) export.Dataset {
	headers := make([]string, 0, len(columns)+6)
	headers = append(headers, "Student", "Email")
	for _, column := range columns {
		headers = append(headers, fmt.Sprintf("%s (%s%%)", column.Name, formatScore(&column.WeightPercentage)))
	}
	headers = append(headers, "Process Average", "Final Exam", "Total", "Grade")

	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		record := make([]string, 0, len(headers))
		record = append(record, row.StudentName, row.StudentEmail)
		for _, column := range columns {
			record = append(record, formatScore(row.ColumnAverages[column.ID]))
		}
		grade := ""
		if row.Grade != nil {
			grade = string(*row.Grade)
		}
		record = append(record, formatScore(row.ProcessAverage), formatScore(row.FinalExamScore), formatScore(row.TotalScore), grade)
		data = append(data, record)
	}
	return export.Dataset{
		Title:   fmt.Sprintf("%s %s", course.Code, course.Name),
		Headers: headers,
		Rows:    data,
	}
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func (s *ExportService) filename(course *models.Course, format ExportFormat) string {
	code := sanitizeFilename(course.Code)
	if code == "" {
		code = fmt.Sprintf("course-%d", course.ID)
	}
	return fmt.Sprintf("grades_%s_%s.%s", code, s.now().UTC().Format("20060102_150405"), format)
}

func sanitizeFilename(raw string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := replacer.Replace(strings.TrimSpace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
