package models

import (
	"time"

	"gorm.io/datatypes"
)

// Plan is an advisor-authored basket of stock holdings offered for
// subscription (premium) or one-time investment.
type Plan struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	AdvisorID uint64 `gorm:"not null;index"`

	PlanName  string `gorm:"type:varchar(255);not null"`
	IsPremium bool   `gorm:"not null;default:false;index"`
	IsActive  bool   `gorm:"not null;default:true;index"`

	Stocks            datatypes.JSONSlice[Holding]           `gorm:"type:jsonb"`
	BoughtClientIDs   datatypes.JSONSlice[uint64]            `gorm:"type:jsonb"`
	SubscribedClients datatypes.JSONSlice[SubscriptionEntry] `gorm:"type:jsonb"`

	// Version implements optimistic concurrency on the whole document.
	// Saves compare-and-swap on it; see repository.ErrVersionConflict.
	Version uint64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Plan) TableName() string {
	return "plans"
}

// SubscriptionFor returns the index of the client's entry in
// SubscribedClients, or -1.
func (p *Plan) SubscriptionFor(clientID uint64) int {
	for i, e := range p.SubscribedClients {
		if e.ID == clientID {
			return i
		}
	}
	return -1
}
