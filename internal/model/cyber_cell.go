package model

// CyberCell 网络犯罪报案点
// swagger:model CyberCell
type CyberCell struct {
	BaseModel
	Name      string  `gorm:"size:200;not null" json:"name" yaml:"name"`
	State     string  `gorm:"size:100;index" json:"state" yaml:"state"`
	City      string  `gorm:"size:100" json:"city" yaml:"city"`
	Address   string  `gorm:"size:255" json:"address" yaml:"address"`
	Phone     string  `gorm:"size:50" json:"phone" yaml:"phone"`
	Email     string  `gorm:"size:100" json:"email" yaml:"email"`
	Latitude  float64 `gorm:"not null" json:"latitude" yaml:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude" yaml:"longitude"`
}

func (CyberCell) TableName() string {
	return "cyber_cells"
}
