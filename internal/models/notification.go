package models

import "time"

// Notification is a persisted plain-text event emitted by the ledger
// components. Delivery transport is out of scope; readers poll by
// recipient.
type Notification struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	Message     string `gorm:"type:text;not null"`
	SenderID    uint64 `gorm:"not null;index"`
	RecipientID uint64 `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Notification) TableName() string {
	return "notifications"
}
