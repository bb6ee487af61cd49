package service

import (
	"context"
	"errors"
	"finguard_backend/internal/model"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/testutil"
	"finguard_backend/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// captureMailer 记录最近一次发出的验证码
type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
	sent  int
}

func (m *captureMailer) SendOTP(ctx context.Context, to, code string, purpose model.OTPPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[string(purpose)+":"+to] = code
	m.sent++
	return nil
}

func (m *captureMailer) code(purpose model.OTPPurpose, to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[string(purpose)+":"+to]
}

// flakyMailer 前 failures 次投递失败
type flakyMailer struct {
	captureMailer
	failures int
}

func (m *flakyMailer) SendOTP(ctx context.Context, to, code string, purpose model.OTPPurpose) error {
	if m.failures > 0 {
		m.failures--
		return errors.New("smtp unavailable")
	}
	return m.captureMailer.SendOTP(ctx, to, code, purpose)
}

func newAuthService(t *testing.T) (*AuthService, *captureMailer, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := testutil.NewTestConfig(t)
	mailer := &captureMailer{}
	otp := NewOTPService(repository.NewOTPRepository(db), nil, mailer, cfg)
	return NewAuthService(repository.NewUserRepository(db), otp, cfg), mailer, db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{
		FirstName: " Priya ",
		LastName:  "Sharma",
		Email:     "priya@example.com",
		Password:  "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "Priya", res.User.FirstName)
	assert.Equal(t, model.Learner, res.User.Role)
	assert.Equal(t, "en", res.User.Language)

	claims, err := util.ParseJWT(res.Token, testutil.TestJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	_, err = svc.Register(ctx, RegisterInput{FirstName: "P", Email: "priya@example.com", Password: "another-pass"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	_, err = svc.Login(ctx, "priya@example.com", "wrong-pass")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	res, err = svc.Login(ctx, "priya@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestLogin_DisabledUser(t *testing.T) {
	svc, _, db := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{FirstName: "Dev", Email: "dev@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", res.User.ID).Update("disabled", true).Error)

	_, err = svc.Login(ctx, "dev@example.com", "password123")
	assert.ErrorIs(t, err, util.ErrUserDisabled)
}

func TestOTPLogin_CreatesAccount(t *testing.T) {
	svc, mailer, _ := newAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestLoginOTP(ctx, "ravi@example.com"))
	code := mailer.code(model.OTPLogin, "ravi@example.com")
	require.Len(t, code, 6)

	// 一分钟内重复请求被限流
	assert.ErrorIs(t, svc.RequestLoginOTP(ctx, "ravi@example.com"), util.ErrOTPThrottled)

	_, err := svc.LoginWithOTP(ctx, "ravi@example.com", "not-it")
	assert.ErrorIs(t, err, util.ErrOTPInvalid)

	res, err := svc.LoginWithOTP(ctx, "ravi@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, "ravi", res.User.FirstName)
	assert.NotZero(t, res.User.ID)

	// 验证码只能使用一次
	_, err = svc.LoginWithOTP(ctx, "ravi@example.com", code)
	assert.ErrorIs(t, err, util.ErrOTPInvalid)
}

func TestOTP_MaxAttemptsAndExpiry(t *testing.T) {
	db := testutil.NewTestDB(t)
	cfg := testutil.NewTestConfig(t)
	cfg.OTP.MaxAttempts = 2
	cfg.OTP.ResendSeconds = 0
	mailer := &captureMailer{}
	otp := NewOTPService(repository.NewOTPRepository(db), nil, mailer, cfg)
	ctx := context.Background()

	require.NoError(t, otp.Request(ctx, "a@example.com", model.OTPLogin))
	code := mailer.code(model.OTPLogin, "a@example.com")
	assert.ErrorIs(t, otp.Verify(ctx, "a@example.com", model.OTPLogin, "000000x"), util.ErrOTPInvalid)
	assert.ErrorIs(t, otp.Verify(ctx, "a@example.com", model.OTPLogin, "000000x"), util.ErrOTPInvalid)
	assert.ErrorIs(t, otp.Verify(ctx, "a@example.com", model.OTPLogin, code), util.ErrOTPTooManyAttempts)

	// 新验证码替换旧的，过期后失效
	require.NoError(t, otp.Request(ctx, "A@example.com ", model.OTPLogin))
	code = mailer.code(model.OTPLogin, "a@example.com")
	otp.Now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	assert.ErrorIs(t, otp.Verify(ctx, "a@example.com", model.OTPLogin, code), util.ErrOTPInvalid)
}

func TestPasswordReset(t *testing.T) {
	svc, mailer, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{FirstName: "Meera", Email: "meera@example.com", Password: "old-password"})
	require.NoError(t, err)

	// 未注册的邮箱静默成功且不发送
	require.NoError(t, svc.RequestPasswordReset(ctx, "ghost@example.com"))
	assert.Equal(t, 0, mailer.sent)

	require.NoError(t, svc.RequestPasswordReset(ctx, "meera@example.com"))
	code := mailer.code(model.OTPPasswordReset, "meera@example.com")
	require.NotEmpty(t, code)

	require.NoError(t, svc.ResetPassword(ctx, "meera@example.com", code, "new-password"))

	_, err = svc.Login(ctx, "meera@example.com", "old-password")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "meera@example.com", "new-password")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{FirstName: "Kabir", LastName: "Rao", Email: "kabir@example.com", Password: "password123"})
	require.NoError(t, err)

	lang := "hi"
	first := " Kabir S. "
	user, err := svc.UpdateProfile(ctx, res.User.ID, ProfileUpdate{FirstName: &first, Language: &lang})
	require.NoError(t, err)
	assert.Equal(t, "Kabir S.", user.FirstName)
	assert.Equal(t, "Rao", user.LastName)
	assert.Equal(t, "hi", user.Language)

	_, err = svc.Profile(ctx, 9999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestOTPRequest_FailedDeliveryDoesNotThrottle(t *testing.T) {
	db := testutil.NewTestDB(t)
	cfg := testutil.NewTestConfig(t)
	mailer := &flakyMailer{failures: 1}
	otp := NewOTPService(repository.NewOTPRepository(db), nil, mailer, cfg)
	ctx := context.Background()

	err := otp.Request(ctx, "meera@example.com", model.OTPLogin)
	require.Error(t, err)
	assert.NotErrorIs(t, err, util.ErrOTPThrottled)

	var stored int64
	require.NoError(t, db.Unscoped().Model(&model.OTPCode{}).Where("email = ?", "meera@example.com").Count(&stored).Error)
	assert.Zero(t, stored, "undelivered code is discarded")

	// 投递失败不占用发送窗口，可以立即重试
	require.NoError(t, otp.Request(ctx, "meera@example.com", model.OTPLogin))
	code := mailer.code(model.OTPLogin, "meera@example.com")
	require.Len(t, code, 6)
	assert.NoError(t, otp.Verify(ctx, "meera@example.com", model.OTPLogin, code))

	assert.ErrorIs(t, otp.Request(ctx, "meera@example.com", model.OTPLogin), util.ErrOTPThrottled)
}
