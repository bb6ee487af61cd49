package model

import (
	"time"

	"gorm.io/datatypes"
)

type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "common"
	RarityUncommon  BadgeRarity = "uncommon"
	RarityRare      BadgeRarity = "rare"
	RarityEpic      BadgeRarity = "epic"
	RarityLegendary BadgeRarity = "legendary"
)

// Badge 徽章目录，所有用户共享，运行期只读
// swagger:model Badge
type Badge struct {
	BaseModel
	Name         string         `gorm:"size:100;uniqueIndex;not null" json:"name" yaml:"name"`
	Description  string         `gorm:"size:255" json:"description" yaml:"description"`
	Icon         string         `gorm:"size:100" json:"icon" yaml:"icon"`
	Color        string         `gorm:"size:20" json:"color" yaml:"color"`
	XPReward     int            `gorm:"not null;default:0" json:"xpReward" yaml:"xpReward"`
	Condition    string         `gorm:"size:50;not null" json:"condition" yaml:"condition"`
	Rarity       BadgeRarity    `gorm:"size:20;default:'common'" json:"rarity" yaml:"rarity"`
	Category     string         `gorm:"size:50" json:"category" yaml:"category"`
	Requirements datatypes.JSON `json:"requirements" yaml:"-"`
	IsActive     bool           `gorm:"not null;default:true" json:"isActive" yaml:"isActive"`
	SortOrder    int            `gorm:"not null;default:0;index" json:"sortOrder" yaml:"sortOrder"`
}

func (Badge) TableName() string {
	return "badges"
}

// UserBadge 用户获得的徽章，同一用户同一徽章只会有一行
// swagger:model UserBadge
type UserBadge struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_badge,priority:1" json:"userId"`
	BadgeID    uint      `gorm:"not null;uniqueIndex:idx_user_badge,priority:2" json:"badgeId"`
	Badge      Badge     `gorm:"foreignKey:BadgeID" json:"badge"`
	EarnedAt   time.Time `gorm:"not null" json:"earnedAt"`
	Score      int       `gorm:"default:0" json:"score"`
	Difficulty string    `gorm:"size:20" json:"difficulty,omitempty"`
	IsFavorite bool      `gorm:"not null;default:false" json:"isFavorite"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}
