package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one instrument position inside a plan's stock basket.
// AvgPrice is the weighted-average cost basis, never a plain mean of
// entered prices.
type Holding struct {
	Symbol   string          `json:"symbol"`
	Qty      decimal.Decimal `json:"qty"`
	AvgPrice decimal.Decimal `json:"avg_price"`
}

// HoldingEdit is a proposed change to a basket entry. Price is the
// execution price of the edit, not the resulting average.
type HoldingEdit struct {
	Symbol string          `json:"symbol"`
	Qty    decimal.Decimal `json:"qty"`
	Price  decimal.Decimal `json:"price"`
}

// SubscriptionEntry records one side of the client<->plan subscription
// relation. The same shape is embedded on both records; ID is the
// counterpart's id.
type SubscriptionEntry struct {
	ID                  uint64    `json:"id"`
	SubscriptionDate    time.Time `json:"subscription_date"`
	SubscriptionExpires time.Time `json:"subscription_expires"`
}

// Active reports whether the subscription is unexpired at now.
func (e SubscriptionEntry) Active(now time.Time) bool {
	return e.SubscriptionExpires.After(now)
}

// PlanPosition is the client-side mirror of a holding, one entry per
// invested plan.
type PlanPosition struct {
	PlanID   uint64          `json:"plan_id"`
	PlanName string          `json:"plan_name"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	Qty      decimal.Decimal `json:"qty"`
}

// PlanStat is the per-instrument capital allocation captured on a
// transaction at invest time.
type PlanStat struct {
	Symbol       string          `json:"symbol"`
	ContriAmount decimal.Decimal `json:"contri_amount"`
}
