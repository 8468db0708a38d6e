package service

import (
	"math"

	"github.com/noah-isme/lms-grading-api/internal/models"
)

type gradeBoundary struct {
	min    float64
	letter models.LetterGrade
}

// gradeBoundaries is ordered from the highest cut-off down; scores are on a 0-10 scale.
var gradeBoundaries = []gradeBoundary{
	{9.0, models.GradeAPlus},
	{8.5, models.GradeA},
	{8.0, models.GradeBPlus},
	{7.0, models.GradeB},
	{6.5, models.GradeCPlus},
	{5.5, models.GradeC},
	{5.0, models.GradeDPlus},
	{4.0, models.GradeD},
}

// boundaryEpsilon absorbs float noise only; it is far below the 0.01
// resolution scores are stored at.
const boundaryEpsilon = 1e-9

// LetterGradeFor maps an unrounded total score to its letter grade.
func LetterGradeFor(score float64) models.LetterGrade {
	for _, b := range gradeBoundaries {
		if score+boundaryEpsilon >= b.min {
			return b.letter
		}
	}
	return models.GradeF
}

// gradeRank orders letters so that a higher rank is a better grade.
func gradeRank(letter models.LetterGrade) int {
	for i, b := range gradeBoundaries {
		if b.letter == letter {
			return len(gradeBoundaries) - i
		}
	}
	return 0
}

// roundScore rounds to the two decimals NUMERIC(5,2) stores.
func roundScore(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := roundScore(*v)
	return &r
}

// roundForStorage rounds every derived score of result to stored precision.
// The letter grade must already be set from the unrounded total.
func roundForStorage(result *models.GradeResult) {
	for id, avg := range result.ColumnAverages {
		result.ColumnAverages[id] = roundPtr(avg)
	}
	result.ProcessAverage = roundPtr(result.ProcessAverage)
	result.TotalScore = roundPtr(result.TotalScore)
}
