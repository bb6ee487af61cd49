package controller

import (
	"finguard_backend/internal/service"
	"finguard_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// RegisterRequest 注册参数
// swagger:model RegisterRequest
type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"max=100"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	Phone     string `json:"phone" binding:"max=20"`
	Language  string `json:"language" binding:"max=10"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type OTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type OTPVerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,numeric"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,numeric"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=72"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" binding:"omitempty,max=100"`
	Phone     *string `json:"phone" binding:"omitempty,max=20"`
	Language  *string `json:"language" binding:"omitempty,max=10"`
	Avatar    *string `json:"avatar" binding:"omitempty,max=255"`
}

// Register godoc
// @Summary 注册新用户
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "用户注册信息"
// @Success 201 {object} util.Response{data=service.AuthResult} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.AuthService.Register(ctx.Request.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Language:  req.Language,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, res)
}

// Login godoc
// @Summary 邮箱密码登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body LoginRequest true "登录信息"
// @Success 200 {object} util.Response{data=service.AuthResult}
// @Failure 401 {object} util.Response
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.AuthService.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// RequestOTP godoc
// @Summary 请求登录验证码
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body OTPRequest true "邮箱"
// @Success 200 {object} util.Response
// @Failure 429 {object} util.Response
// @Router /auth/otp/request [post]
func (c *AuthController) RequestOTP(ctx *gin.Context) {
	var req OTPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.AuthService.RequestLoginOTP(ctx.Request.Context(), req.Email); err != nil {
		respondError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "OTP sent", nil)
}

// VerifyOTP godoc
// @Summary 验证码登录，账号不存在时自动创建
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body OTPVerifyRequest true "邮箱与验证码"
// @Success 200 {object} util.Response{data=service.AuthResult}
// @Failure 400 {object} util.Response
// @Router /auth/otp/verify [post]
func (c *AuthController) VerifyOTP(ctx *gin.Context) {
	var req OTPVerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.AuthService.LoginWithOTP(ctx.Request.Context(), req.Email, req.Code)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// ForgotPassword godoc
// @Summary 请求重置密码验证码
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body OTPRequest true "邮箱"
// @Success 200 {object} util.Response
// @Router /auth/password/forgot [post]
func (c *AuthController) ForgotPassword(ctx *gin.Context) {
	var req OTPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.AuthService.RequestPasswordReset(ctx.Request.Context(), req.Email); err != nil {
		respondError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "If the email is registered, an OTP has been sent", nil)
}

// ResetPassword godoc
// @Summary 通过验证码重置密码
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body ResetPasswordRequest true "重置信息"
// @Success 200 {object} util.Response
// @Router /auth/password/reset [post]
func (c *AuthController) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.AuthService.ResetPassword(ctx.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		respondError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Password updated", nil)
}

// GetProfile godoc
// @Summary 当前用户信息
// @Tags 用户
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User}
// @Router /users/me [get]
func (c *AuthController) GetProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	user, err := c.AuthService.Profile(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UpdateProfile godoc
// @Summary 更新当前用户信息
// @Tags 用户
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body UpdateProfileRequest true "需要修改的字段"
// @Success 200 {object} util.Response{data=model.User}
// @Router /users/me [patch]
func (c *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	user, err := c.AuthService.UpdateProfile(ctx.Request.Context(), userID, service.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Language:  req.Language,
		Avatar:    req.Avatar,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}
