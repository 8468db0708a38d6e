package service

import (
	"context"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

// weightEpsilon absorbs float drift when weights like 33.33 are summed.
const weightEpsilon = 1e-9

type columnWeightReader interface {
	SumActiveWeights(ctx context.Context, courseID, excludeID int64) (float64, error)
}

// WeightValidator checks that a course's active column weights stay within 100%.
type WeightValidator struct {
	columns columnWeightReader
}

// NewWeightValidator constructs a WeightValidator.
func NewWeightValidator(columns columnWeightReader) *WeightValidator {
	return &WeightValidator{columns: columns}
}

// ValidateWeightTotal sums active column weights for the course, skipping
// excludeColumnID when non-zero. It never rejects anything by itself.
func (v *WeightValidator) ValidateWeightTotal(ctx context.Context, courseID, excludeColumnID int64) (*models.WeightCheck, error) {
	total, err := v.columns.SumActiveWeights(ctx, courseID, excludeColumnID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sum grade column weights")
	}
	total = roundScore(total)
	return &models.WeightCheck{IsValid: total <= models.MaxWeightTotal+weightEpsilon, CurrentTotal: total}, nil
}

// fits reports whether adding weight to the current total keeps it within 100%.
func (v *WeightValidator) fits(ctx context.Context, courseID, excludeColumnID int64, weight float64) (*models.WeightCheck, bool, error) {
	check, err := v.ValidateWeightTotal(ctx, courseID, excludeColumnID)
	if err != nil {
		return nil, false, err
	}
	return check, check.CurrentTotal+weight <= models.MaxWeightTotal+weightEpsilon, nil
}
