package service

import (
	"context"
	"crypto/rand"
	"errors"
	"finguard_backend/internal/config"
	"finguard_backend/internal/model"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/util"
	"finguard_backend/pkg/logger"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Mailer 验证码投递，模板渲染不在本服务范围内
type Mailer interface {
	SendOTP(ctx context.Context, to, code string, purpose model.OTPPurpose) error
}

// LogMailer 只写日志，开发环境使用
type LogMailer struct{}

func (LogMailer) SendOTP(ctx context.Context, to, code string, purpose model.OTPPurpose) error {
	logger.Log.Info("OTP issued", zap.String("email", to), zap.String("purpose", string(purpose)))
	logger.Log.Debug("OTP code", zap.String("email", to), zap.String("code", code))
	return nil
}

type OTPService struct {
	Repo   *repository.OTPRepository
	Redis  *redis.Client
	Mailer Mailer
	Cfg    config.OTPConfig
	Now    func() time.Time
}

func NewOTPService(repo *repository.OTPRepository, rdb *redis.Client, mailer Mailer, cfg *config.Config) *OTPService {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &OTPService{
		Repo:   repo,
		Redis:  rdb,
		Mailer: mailer,
		Cfg:    cfg.OTP,
		Now:    time.Now,
	}
}

func (s *OTPService) throttleKey(email string, purpose model.OTPPurpose) string {
	return fmt.Sprintf("otp:throttle:%s:%s", purpose, email)
}

// allowSend 同一邮箱同一用途 ResendSeconds 内只能发送一次
func (s *OTPService) allowSend(ctx context.Context, email string, purpose model.OTPPurpose) (bool, error) {
	window := time.Duration(s.Cfg.ResendSeconds) * time.Second
	if window <= 0 {
		return true, nil
	}
	if s.Redis != nil {
		return s.Redis.SetNX(ctx, s.throttleKey(email, purpose), 1, window).Result()
	}
	last, err := s.Repo.LatestCreatedAt(ctx, email, purpose)
	if err != nil {
		return false, err
	}
	return last == nil || s.Now().Sub(*last) >= window, nil
}

// Request 生成并发送验证码，旧验证码作废
func (s *OTPService) Request(ctx context.Context, email string, purpose model.OTPPurpose) error {
	email = strings.ToLower(strings.TrimSpace(email))
	ok, err := s.allowSend(ctx, email, purpose)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrOTPThrottled
	}

	code, err := generateCode(s.Cfg.CodeLength)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	record := &model.OTPCode{
		Email:     email,
		Purpose:   purpose,
		CodeHash:  string(hash),
		ExpiresAt: s.Now().Add(time.Duration(s.Cfg.TTLMinutes) * time.Minute),
	}
	if err := s.Repo.Replace(ctx, record); err != nil {
		s.releaseSend(ctx, email, purpose, nil)
		return fmt.Errorf("store otp: %w", err)
	}
	if err := s.Mailer.SendOTP(ctx, email, code, purpose); err != nil {
		s.releaseSend(ctx, email, purpose, record)
		return fmt.Errorf("send otp: %w", err)
	}
	return nil
}

// releaseSend 发送失败时撤销本次限频，用户可以立即重试
func (s *OTPService) releaseSend(ctx context.Context, email string, purpose model.OTPPurpose, record *model.OTPCode) {
	if s.Redis != nil {
		if err := s.Redis.Del(ctx, s.throttleKey(email, purpose)).Err(); err != nil {
			logger.Log.Warn("Failed to release otp throttle", zap.String("email", email), zap.Error(err))
		}
	}
	if record != nil && record.ID != 0 {
		if err := s.Repo.Discard(ctx, record.ID); err != nil {
			logger.Log.Warn("Failed to discard unsent otp", zap.Uint("id", record.ID), zap.Error(err))
		}
	}
}

// Verify 校验成功后验证码即失效
func (s *OTPService) Verify(ctx context.Context, email string, purpose model.OTPPurpose, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	record, err := s.Repo.FindActive(ctx, email, purpose, s.Now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrOTPInvalid
	}
	if err != nil {
		return err
	}
	if s.Cfg.MaxAttempts > 0 && record.Attempts >= s.Cfg.MaxAttempts {
		return util.ErrOTPTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(strings.TrimSpace(code))) != nil {
		if err := s.Repo.IncrementAttempts(ctx, record.ID); err != nil {
			return err
		}
		return util.ErrOTPInvalid
	}

	consumed, err := s.Repo.Consume(ctx, record.ID, s.Now())
	if err != nil {
		return err
	}
	if !consumed {
		return util.ErrOTPInvalid
	}
	return nil
}

func generateCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
