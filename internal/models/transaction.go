package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Transaction is the append-only system of record for investments.
// Rows are created once per invest event and never mutated; portfolio
// analytics and relation reconciliation both derive from them.
type Transaction struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	PlanID    uint64 `gorm:"not null;index"`
	ClientID  uint64 `gorm:"not null;index"`
	AdvisorID uint64 `gorm:"not null;index"`

	PlanName   string `gorm:"type:varchar(255)"`
	ClientName string `gorm:"type:varchar(255)"`
	IsPremium  bool   `gorm:"not null;default:false;index"`

	InvestedAmount decimal.Decimal               `gorm:"type:numeric(30,10);not null"`
	PlanStats      datatypes.JSONSlice[PlanStat] `gorm:"type:jsonb"`

	Date      time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}
