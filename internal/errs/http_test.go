package errs

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVia(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	WriteError(c, err)
	return w
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", Validation("days", "must be an integer"), http.StatusBadRequest, "VALIDATION"},
		{"not found", NotFound("monitor", "m-1"), http.StatusNotFound, "NOT_FOUND"},
		{"auth", Auth("invalid probe token"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"conflict", Conflict("duplicate link"), http.StatusConflict, "CONFLICT"},
		{"change freeze", &ChangeFreezeError{IncidentID: "inc-1", Severity: "major"}, http.StatusLocked, "CHANGE_FREEZE"},
		{"unknown", errors.New("pq: connection reset"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := writeVia(t, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}
}

func TestWriteErrorDoesNotEchoInternalDetails(t *testing.T) {
	w := writeVia(t, errors.New("password=hunter2 dial failed"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
}

func TestWriteErrorWrappedTaxonomy(t *testing.T) {
	w := writeVia(t, errors.Join(errors.New("while linking"), Conflict("duplicate link")))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestChangeFreezeErrorIncludesIncident(t *testing.T) {
	w := writeVia(t, &ChangeFreezeError{IncidentID: "inc-42", Severity: "critical"})
	assert.Contains(t, w.Body.String(), "inc-42")
	assert.Contains(t, w.Body.String(), "critical")
}
