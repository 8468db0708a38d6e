package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type weightSumStub struct {
	total      float64
	err        error
	gotExclude int64
}

func (s *weightSumStub) SumActiveWeights(ctx context.Context, courseID, excludeID int64) (float64, error) {
	s.gotExclude = excludeID
	return s.total, s.err
}

func TestWeightValidatorValidateWeightTotal(t *testing.T) {
	stub := &weightSumStub{total: 80}
	v := NewWeightValidator(stub)

	check, err := v.ValidateWeightTotal(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, check.IsValid)
	assert.Equal(t, 80.0, check.CurrentTotal)
	assert.Equal(t, int64(7), stub.gotExclude)

	stub.total = 100.01
	check, err = v.ValidateWeightTotal(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.False(t, check.IsValid)
}

func TestWeightValidatorFits(t *testing.T) {
	v := NewWeightValidator(&weightSumStub{total: 80})

	_, ok, err := v.fits(context.Background(), 1, 0, 30)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = v.fits(context.Background(), 1, 0, 20)
	require.NoError(t, err)
	assert.True(t, ok)

	v = NewWeightValidator(&weightSumStub{total: 66.66})
	_, ok, err = v.fits(context.Background(), 1, 0, 33.34)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWeightValidatorPropagatesStoreFailure(t *testing.T) {
	v := NewWeightValidator(&weightSumStub{err: errors.New("db down")})
	_, err := v.ValidateWeightTotal(context.Background(), 1, 0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
