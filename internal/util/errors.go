package util

import "errors"

// 业务相关错误，HTTP 状态见 controller.respondError
var (
	ErrAlreadyCompleted   = errors.New("already completed")
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrScenarioNotFound   = errors.New("scenario not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrBadgeNotFound      = errors.New("badge not found")
	ErrBadgeNotEarned     = errors.New("badge not earned")
	ErrReportNotFound     = errors.New("report not found")
	ErrInvalidChoice      = errors.New("choice does not belong to scenario")
	ErrOTPThrottled       = errors.New("otp requested too recently")
	ErrOTPInvalid         = errors.New("invalid or expired otp")
	ErrOTPTooManyAttempts = errors.New("too many otp attempts")
)

// 请求参数非法：HTTP 400
var (
	ErrInvalidScore = errors.New("score must be between 0 and 100")
	ErrInvalidTool  = errors.New("tool name is required")
	// 举报状态只能是 pending / verified / rejected
	ErrInvalidStatus   = errors.New("invalid report status")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrInvalidQuestion = errors.New("correct index out of range")
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidURL         = errors.New("invalid url")
	ErrFileTooLarge       = errors.New("file too large")
	// 乐观锁重试耗尽
	ErrConcurrentUpdate = errors.New("progression was modified concurrently, please retry")
)
