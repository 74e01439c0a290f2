package models

import (
	"time"

	"gorm.io/datatypes"
)

// Advisor owns plans. ClientIDs is a denormalized back-reference
// populated the first time a client invests through the advisor.
type Advisor struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"type:varchar(255);not null"`

	ClientIDs datatypes.JSONSlice[uint64] `gorm:"type:jsonb"`

	Version uint64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Advisor) TableName() string {
	return "advisors"
}
