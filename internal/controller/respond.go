package controller

import (
	"errors"
	"finguard_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

// rejections 业务规则拒绝，返回 200 + success=false
var rejections = []error{
	util.ErrAlreadyCompleted,
	util.ErrQuizNotFound,
	util.ErrScenarioNotFound,
	util.ErrLessonNotFound,
	util.ErrInvalidChoice,
	util.ErrBadgeNotEarned,
}

var statusByError = []struct {
	err    error
	status int
}{
	{util.ErrCourseNotFound, http.StatusNotFound},
	{util.ErrBadgeNotFound, http.StatusNotFound},
	{util.ErrReportNotFound, http.StatusNotFound},
	{util.ErrUserNotFound, http.StatusNotFound},
	{util.ErrInvalidScore, http.StatusBadRequest},
	{util.ErrInvalidTool, http.StatusBadRequest},
	{util.ErrInvalidCoordinates, http.StatusBadRequest},
	{util.ErrInvalidURL, http.StatusBadRequest},
	{util.ErrInvalidStatus, http.StatusBadRequest},
	{util.ErrInvalidFileType, http.StatusBadRequest},
	{util.ErrInvalidQuestion, http.StatusBadRequest},
	{util.ErrOTPInvalid, http.StatusBadRequest},
	{util.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{util.ErrOTPThrottled, http.StatusTooManyRequests},
	{util.ErrOTPTooManyAttempts, http.StatusTooManyRequests},
	{util.ErrInvalidCredentials, http.StatusUnauthorized},
	{util.ErrUserDisabled, http.StatusForbidden},
	{util.ErrPermissionDenied, http.StatusForbidden},
	{util.ErrEmailRegistered, http.StatusConflict},
}

// respondError 将服务层错误映射为统一响应
func respondError(ctx *gin.Context, err error) {
	for _, r := range rejections {
		if errors.Is(err, r) {
			util.Rejected(ctx, r.Error(), nil)
			return
		}
	}
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			util.Error(ctx, m.status, err.Error())
			return
		}
	}
	util.LogInternalError(ctx, err)
}

// currentUserID 未登录时已写入 401
func currentUserID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	return claims.UserID, true
}
