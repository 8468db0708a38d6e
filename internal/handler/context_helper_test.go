package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

func TestIDParam(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/", nil, gin.Params{{Key: "courseId", Value: "12"}, {Key: "bad", Value: "-1"}})

	id, err := idParam(c, "courseId")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = idParam(c, "bad")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = idParam(c, "missing")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestQueryHelpers(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/?excludeColumnId=4&includeInactive=true&page=3&pageSize=999", nil, nil)

	id, err := idQuery(c, "excludeColumnId")
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
	absent, err := idQuery(c, "other")
	require.NoError(t, err)
	assert.Zero(t, absent)

	assert.True(t, boolQuery(c, "includeInactive"))
	assert.False(t, boolQuery(c, "async"))

	page, size := pageParams(c)
	assert.Equal(t, 3, page)
	assert.Equal(t, maxPageSize, size)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	got, meta := paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, got)
	assert.Equal(t, 5, meta.TotalCount)

	got, _ = paginate(items, 3, 2)
	assert.Equal(t, []int{5}, got)

	got, _ = paginate(items, 9, 2)
	assert.Empty(t, got)
}
