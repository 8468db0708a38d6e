package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
	"github.com/noah-isme/lms-grading-api/pkg/middleware/requestid"
)

func serve(t *testing.T, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", h)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(w, req)
	return w
}

func TestJSONCarriesRequestID(t *testing.T) {
	w := serve(t, func(c *gin.Context) { JSON(c, http.StatusOK, gin.H{"ok": true}, nil) })

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var body struct {
		Data map[string]bool `json:"data"`
		Meta Meta            `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data["ok"])
	assert.Equal(t, "req-1", body.Meta.RequestID)
}

func TestErrorMapsTaxonomy(t *testing.T) {
	w := serve(t, func(c *gin.Context) { Error(c, appErrors.Clone(appErrors.ErrCrossCourse, "quiz belongs to another course")) })
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = serve(t, func(c *gin.Context) { Error(c, errors.New("boom")) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestAttachment(t *testing.T) {
	w := serve(t, func(c *gin.Context) { Attachment(c, "grades.csv", "text/csv", []byte("a,b\n")) })
	assert.Equal(t, `attachment; filename="grades.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "a,b\n", w.Body.String())
}
