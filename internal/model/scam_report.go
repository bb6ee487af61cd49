package model

import "time"

type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportVerified ReportStatus = "verified"
	ReportRejected ReportStatus = "rejected"
)

// ScamReport 用户提交的诈骗举报，用于生成热力图
// swagger:model ScamReport
type ScamReport struct {
	UUIDBase
	UserID      uint         `gorm:"index;not null" json:"userId"`
	Category    string       `gorm:"size:50;index;not null" json:"category"`
	Description string       `gorm:"type:text" json:"description"`
	Latitude    float64      `gorm:"not null" json:"latitude"`
	Longitude   float64      `gorm:"not null" json:"longitude"`
	City        string       `gorm:"size:100" json:"city"`
	AmountLost  float64      `gorm:"default:0" json:"amountLost"`
	EvidenceURL string       `gorm:"size:255" json:"evidenceUrl,omitempty"`
	Status      ReportStatus `gorm:"size:20;default:'pending';index" json:"status"`
	OccurredAt  *time.Time   `json:"occurredAt,omitempty"`
}

func (ScamReport) TableName() string {
	return "scam_reports"
}
