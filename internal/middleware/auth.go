package middleware

import (
	"finguard_backend/internal/config"
	"finguard_backend/internal/model"
	"finguard_backend/internal/util"
	"finguard_backend/pkg/logger"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// bearerToken 解析 "Authorization: Bearer <token>"，scheme 不区分大小写
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthMiddleware 校验 Bearer token，解析结果放入 gin.Context
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("JWT rejected", zap.String("path", c.FullPath()), zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		trace.SpanFromContext(c.Request.Context()).SetAttributes(
			attribute.Int64("user.id", int64(claims.UserID)),
			attribute.String("user.role", string(claims.Role)),
		)
		c.Set(util.ContextUserKey, claims)
		c.Next()
	}
}

// RoleMiddleware 管理员可以访问所有角色的接口
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		if user.Role != model.Admin && !hasRole(user.Role, roles) {
			logger.Log.Info("Role check failed", zap.Uint("userID", user.UserID), zap.String("role", string(user.Role)))
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

func hasRole(role model.UserRole, allowed []model.UserRole) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

type UserActivityRepo interface {
	UpdateLastSeen(userID uint) error
}

// 同一用户两次写 last_seen 的最小间隔
const lastSeenInterval = time.Minute

// ActivityMiddleware 异步刷新 last_seen，每个用户每分钟最多写一次
func ActivityMiddleware(repo UserActivityRepo) gin.HandlerFunc {
	var seen sync.Map // userID -> time.Time

	return func(c *gin.Context) {
		if claims := util.GetUserFromContext(c); claims != nil {
			now := time.Now()
			prev, loaded := seen.Load(claims.UserID)
			if !loaded || now.Sub(prev.(time.Time)) >= lastSeenInterval {
				seen.Store(claims.UserID, now)
				go func(id uint) {
					if err := repo.UpdateLastSeen(id); err != nil {
						logger.Log.Warn("Failed to update last seen", zap.Uint("userID", id), zap.Error(err))
					}
				}(claims.UserID)
			}
		}
		c.Next()
	}
}
