package progressionclient

import (
	"context"
	"errors"
	"finguard_backend/internal/app"
	"finguard_backend/internal/testutil"
	"finguard_backend/internal/util"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testutil.NewTestConfig(t)
	db := testutil.NewTestDB(t)
	a := app.Build(cfg, db, nil)
	require.NoError(t, a.Seed(context.Background()))

	srv := httptest.NewServer(a.Router)
	t.Cleanup(srv.Close)

	user := testutil.CreateUser(t, db, "Client")
	token, err := util.GenerateJWT(user, testutil.TestJWTSecret, time.Hour)
	require.NoError(t, err)
	return srv, token
}

func TestClient_MutationsResyncCache(t *testing.T) {
	srv, token := newServer(t)
	c := New(srv.URL+"/api/", token)
	ctx := context.Background()

	assert.Nil(t, c.Cached())

	res, err := c.CompleteQuiz(ctx, "quiz-1", 100)
	require.NoError(t, err)
	assert.Equal(t, 50, res.XPResult.XPGained)
	assert.Len(t, res.BadgeResult.NewBadges, 2)

	cached := c.Cached()
	require.NotNil(t, cached)
	assert.Equal(t, 80, cached.XP)
	assert.Equal(t, []string{"quiz-1"}, cached.Completed.Quizzes)

	// 重复完成是业务拒绝，缓存仍会刷新
	_, err = c.CompleteQuiz(ctx, "quiz-1", 100)
	require.Error(t, err)
	assert.True(t, IsRejected(err))
	assert.True(t, IsAlreadyCompleted(err))
	assert.Equal(t, 80, c.Cached().XP)

	_, err = c.CompleteCourse(ctx, "course-1")
	require.NoError(t, err)
	_, err = c.CompleteLesson(ctx, "lesson-1")
	require.NoError(t, err)
	_, err = c.CompleteScenario(ctx, "scenario-1")
	require.NoError(t, err)
	_, err = c.UseTool(ctx, "url_analyzer")
	require.NoError(t, err)

	streak, err := c.UpdateStreak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, streak.Streak)

	view := c.Cached()
	assert.Equal(t, 1, view.Stats.CoursesCompleted)
	assert.Equal(t, 1, view.Stats.LessonsCompleted)
	assert.Equal(t, 1, view.Stats.ScenariosCompleted)
	assert.Equal(t, 1, view.Stats.ToolsUsed)
	assert.Equal(t, 1, view.Streak)

	badges, err := c.Badges(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, badges)

	board, err := c.Leaderboard(ctx, 3)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, view.XP, board[0].XP)
}

func TestClient_ValidationError(t *testing.T) {
	srv, token := newServer(t)
	c := New(srv.URL+"/api", token)

	_, err := c.CompleteQuiz(context.Background(), "quiz-1", 101)
	require.Error(t, err)
	assert.False(t, IsRejected(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestClient_Unauthorized(t *testing.T) {
	srv, _ := newServer(t)
	c := New(srv.URL+"/api", "")

	_, err := c.Refresh(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Nil(t, c.Cached())
}

func TestClient_InternalErrorUsesErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"success":false,"code":500,"message":"","error":"database is locked"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	_, err := c.Leaderboard(context.Background(), 0)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "database is locked", apiErr.Message)
}

func TestClient_TransportErrorSkipsResync(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(srv.URL, "token")
	_, err := c.CompleteCourse(context.Background(), "c1")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Nil(t, c.Cached())
}
