package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"finguard_backend/internal/config"
	"finguard_backend/internal/model"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/util"
	"finguard_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	Language  string
}

// ProfileUpdate 为空的字段不修改
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Language  *string
	Avatar    *string
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthService struct {
	UserRepo *repository.UserRepository
	OTP      *OTPService
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, otp *OTPService, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		OTP:      otp,
		Cfg:      cfg,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	_, err := s.UserRepo.FindByEmail(ctx, in.Email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     in.Email,
		Phone:     in.Phone,
		Password:  string(hashedPassword),
		Role:      model.Learner,
		Language:  in.Language,
	}
	if user.Language == "" {
		user.Language = "en"
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.UserRepo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, util.ErrUserDisabled
	}
	return s.issue(user)
}

// RequestLoginOTP 未注册的邮箱也可以请求，验证通过后自动建号
func (s *AuthService) RequestLoginOTP(ctx context.Context, email string) error {
	return s.OTP.Request(ctx, email, model.OTPLogin)
}

func (s *AuthService) LoginWithOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	if err := s.OTP.Verify(ctx, email, model.OTPLogin, code); err != nil {
		return nil, err
	}

	user, err := s.UserRepo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.createFromEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, util.ErrUserDisabled
	}
	return s.issue(user)
}

func (s *AuthService) createFromEmail(ctx context.Context, email string) (*model.User, error) {
	// 随机密码，之后可通过重置密码设置
	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(secret)), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	user := &model.User{
		FirstName: name,
		Email:     email,
		Password:  string(hashed),
		Role:      model.Learner,
		Language:  "en",
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	logger.Log.Info("User created via OTP login", zap.Uint("userID", user.ID))
	return user, nil
}

// RequestPasswordReset 邮箱不存在时静默成功，不暴露注册情况
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := s.UserRepo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.OTP.Request(ctx, email, model.OTPPasswordReset)
}

func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := s.OTP.Verify(ctx, email, model.OTPPasswordReset, code); err != nil {
		return err
	}
	user, err := s.UserRepo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrUserNotFound
	}
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.UserRepo.UpdatePassword(ctx, user.ID, string(hashed))
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*model.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	if in.Language != nil {
		user.Language = *in.Language
	}
	if in.Avatar != nil {
		user.Avatar = *in.Avatar
	}
	if err := s.UserRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}
