package controller

import (
	"encoding/json"
	"errors"
	"finguard_backend/internal/util"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(t *testing.T, err error) (int, util.Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/api/progression/courses/complete", nil)

	respondError(ctx, err)

	var env util.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"business rejection", util.ErrAlreadyCompleted, http.StatusOK, util.ErrAlreadyCompleted.Error()},
		{"wrapped rejection", fmt.Errorf("quiz q1: %w", util.ErrQuizNotFound), http.StatusOK, util.ErrQuizNotFound.Error()},
		{"not found", util.ErrCourseNotFound, http.StatusNotFound, util.ErrCourseNotFound.Error()},
		{"invalid input", util.ErrInvalidScore, http.StatusBadRequest, util.ErrInvalidScore.Error()},
		{"lost update", util.ErrConcurrentUpdate, http.StatusInternalServerError, "Internal server error"},
		{"storage failure", errors.New("no such table: user_badges"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := respond(t, tc.err)
			assert.Equal(t, tc.status, code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.message, env.Message)
			if tc.status == http.StatusInternalServerError {
				assert.Equal(t, tc.err.Error(), env.Error)
			}
		})
	}
}
