package models

import (
	"time"

	"gorm.io/datatypes"
)

// Client is an investor profile. The embedded arrays are the client's
// side of the denormalized relations kept in sync by the ledger, not by
// the store.
type Client struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"type:varchar(255);not null"`

	BoughtPlanIDs   datatypes.JSONSlice[uint64]            `gorm:"type:jsonb"`
	SubscribedPlans datatypes.JSONSlice[SubscriptionEntry] `gorm:"type:jsonb"`
	AdvisorIDs      datatypes.JSONSlice[uint64]            `gorm:"type:jsonb"`
	PlanData        datatypes.JSONSlice[PlanPosition]      `gorm:"type:jsonb"`

	Version uint64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Client) TableName() string {
	return "clients"
}

// SubscriptionFor returns the index of the plan's entry in
// SubscribedPlans, or -1.
func (c *Client) SubscriptionFor(planID uint64) int {
	for i, e := range c.SubscribedPlans {
		if e.ID == planID {
			return i
		}
	}
	return -1
}

// PositionFor returns the index of the plan's entry in PlanData, or -1.
func (c *Client) PositionFor(planID uint64) int {
	for i, p := range c.PlanData {
		if p.PlanID == planID {
			return i
		}
	}
	return -1
}

// ContainsID reports membership in a jsonb id list.
func ContainsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
