package middleware

import (
	"finguard_backend/internal/config"
	"finguard_backend/internal/model"
	"finguard_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

type countingRepo struct{ calls atomic.Int32 }

func (r *countingRepo) UpdateLastSeen(uint) error {
	r.calls.Add(1)
	return nil
}

func newRouter(repo UserActivityRepo, roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}

	r := gin.New()
	chain := []gin.HandlerFunc{AuthMiddleware(cfg), ActivityMiddleware(repo)}
	if len(roles) > 0 {
		chain = append(chain, RoleMiddleware(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		c.String(http.StatusOK, "%d", util.GetUserFromContext(c).UserID)
	})
	r.GET("/me", chain...)
	return r
}

func get(t *testing.T, r http.Handler, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func token(t *testing.T, id uint, role model.UserRole) string {
	t.Helper()
	tok, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: id}, Role: role}, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer   abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("abc"))
	assert.Empty(t, bearerToken(""))
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(&countingRepo{})

	assert.Equal(t, http.StatusUnauthorized, get(t, r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "Bearer not-a-jwt").Code)

	w := get(t, r, "Bearer "+token(t, 9, model.Learner))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9", w.Body.String())
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter(&countingRepo{}, model.Admin)

	assert.Equal(t, http.StatusForbidden, get(t, r, "Bearer "+token(t, 1, model.Learner)).Code)
	assert.Equal(t, http.StatusOK, get(t, r, "Bearer "+token(t, 2, model.Admin)).Code)
}

func TestActivityMiddleware_ThrottlesPerUser(t *testing.T) {
	repo := &countingRepo{}
	r := newRouter(repo)

	first := "Bearer " + token(t, 1, model.Learner)
	second := "Bearer " + token(t, 2, model.Learner)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, get(t, r, first).Code)
	}
	require.Equal(t, http.StatusOK, get(t, r, second).Code)

	assert.Eventually(t, func() bool { return repo.calls.Load() == 2 }, time.Second, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), repo.calls.Load())
}
