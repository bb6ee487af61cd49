package model

import (
	"strings"
	"time"
)

type UserRole string

const (
	Learner UserRole = "learner"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	FirstName string     `gorm:"size:100;not null" json:"firstName"`
	LastName  string     `gorm:"size:100" json:"lastName"`
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Phone     string     `gorm:"size:20" json:"phone,omitempty"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Role      UserRole   `gorm:"size:20;default:'learner'" json:"role"`
	Language  string     `gorm:"size:10;default:'en'" json:"language"`
	Avatar    string     `gorm:"size:255" json:"avatar"`
	Disabled  bool       `gorm:"default:false" json:"disabled"`
	LastSeen  *time.Time `json:"lastSeen,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
