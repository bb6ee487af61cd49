package model

import "time"

type OTPPurpose string

const (
	OTPLogin         OTPPurpose = "login"
	OTPPasswordReset OTPPurpose = "password_reset"
)

// OTPCode 一次性验证码，只保存哈希
type OTPCode struct {
	BaseModel
	Email      string     `gorm:"size:100;index;not null"`
	Purpose    OTPPurpose `gorm:"size:30;not null"`
	CodeHash   string     `gorm:"size:100;not null"`
	ExpiresAt  time.Time  `gorm:"not null"`
	ConsumedAt *time.Time
	Attempts   int `gorm:"default:0"`
}

func (OTPCode) TableName() string {
	return "otp_codes"
}
