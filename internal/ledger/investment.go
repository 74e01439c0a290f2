package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"advisory/internal/models"
	"advisory/internal/notify"
	"advisory/internal/repository"
)

// InvestmentLedger executes one-time purchases of a plan. Each invest
// produces exactly one immutable Transaction; the membership and
// position writes around it are independent, and the reconciler
// re-derives them from the transaction log after a partial failure.
type InvestmentLedger struct {
	Repo     repository.Repository
	Notifier notify.Notifier
	Logger   *zap.Logger

	Now     func() time.Time
	Retries int
	Timeout time.Duration
}

func (l *InvestmentLedger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}

// Invest records the client's purchase of qty units at price. Bought
// lists and the advisor link use set semantics, so repeat purchases
// never duplicate references; the client's position for the plan is
// blended at weighted-average cost.
func (l *InvestmentLedger) Invest(ctx context.Context, clientID, planID, advisorID uint64, price, qty decimal.Decimal) (*models.Transaction, error) {
	if !price.IsPositive() {
		return nil, BadRequest("price must be positive")
	}
	if !qty.IsPositive() {
		return nil, BadRequest("quantity must be positive")
	}

	callCtx, cancel := withTimeout(ctx, l.Timeout)
	client, err := l.Repo.GetClientByID(callCtx, clientID)
	cancel()
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotRegistered
	}

	callCtx, cancel = withTimeout(ctx, l.Timeout)
	plan, err := l.Repo.GetPlanByID(callCtx, planID)
	cancel()
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, NotFound("plan")
	}

	callCtx, cancel = withTimeout(ctx, l.Timeout)
	advisor, err := l.Repo.GetAdvisorByID(callCtx, advisorID)
	cancel()
	if err != nil {
		return nil, err
	}
	if advisor == nil {
		return nil, NotFound("advisor")
	}

	// Membership first: bought lists on both sides, advisor link.
	_, err = UpdateClient(ctx, l.Repo, l.Retries, l.Timeout, clientID, func(c *models.Client) error {
		changed := false
		if !models.ContainsID(c.BoughtPlanIDs, planID) {
			c.BoughtPlanIDs = append(c.BoughtPlanIDs, planID)
			changed = true
		}
		if !models.ContainsID(c.AdvisorIDs, advisorID) {
			c.AdvisorIDs = append(c.AdvisorIDs, advisorID)
			changed = true
		}
		if !changed {
			return ErrSkipSave
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_, err = UpdatePlan(ctx, l.Repo, l.Retries, l.Timeout, planID, func(p *models.Plan) error {
		if models.ContainsID(p.BoughtClientIDs, clientID) {
			return ErrSkipSave
		}
		p.BoughtClientIDs = append(p.BoughtClientIDs, clientID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	_, err = UpdateAdvisor(ctx, l.Repo, l.Retries, l.Timeout, advisorID, func(a *models.Advisor) error {
		if models.ContainsID(a.ClientIDs, clientID) {
			return ErrSkipSave
		}
		a.ClientIDs = append(a.ClientIDs, clientID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	invested := price.Mul(qty)
	tx := &models.Transaction{
		PlanID:         planID,
		ClientID:       clientID,
		AdvisorID:      advisorID,
		PlanName:       plan.PlanName,
		ClientName:     client.Name,
		IsPremium:      plan.IsPremium,
		InvestedAmount: invested,
		PlanStats:      allocationStats(plan.Stocks, invested),
		Date:           l.now(),
	}
	callCtx, cancel = withTimeout(ctx, l.Timeout)
	err = l.Repo.InsertTransaction(callCtx, tx)
	cancel()
	if err != nil {
		return nil, err
	}

	// Position update is deliberately after the transaction insert: a
	// crash here leaves a recorded transaction and the reconciler
	// rebuilds the position from it.
	_, err = UpdateClient(ctx, l.Repo, l.Retries, l.Timeout, clientID, func(c *models.Client) error {
		c.PlanData = blendPosition(c.PlanData, plan, price, qty)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if l.Notifier != nil {
		msg := fmt.Sprintf("%s bought your plan, %s", client.Name, plan.PlanName)
		l.Notifier.Notify(msg, clientID, []uint64{advisorID})
	}
	if l.Logger != nil {
		l.Logger.Info("investment recorded",
			zap.Uint64("client_id", clientID),
			zap.Uint64("plan_id", planID),
			zap.String("invested_amount", invested.String()),
		)
	}

	return tx, nil
}

// allocationStats splits the invested amount across the basket in
// proportion to each holding's share of basket value at invest time.
func allocationStats(stocks []models.Holding, invested decimal.Decimal) []models.PlanStat {
	total := decimal.Zero
	for _, h := range stocks {
		total = total.Add(h.Qty.Mul(h.AvgPrice))
	}
	if !total.IsPositive() {
		return nil
	}
	stats := make([]models.PlanStat, 0, len(stocks))
	for _, h := range stocks {
		value := h.Qty.Mul(h.AvgPrice)
		if !value.IsPositive() {
			continue
		}
		stats = append(stats, models.PlanStat{
			Symbol:       h.Symbol,
			ContriAmount: invested.Mul(value).Div(total),
		})
	}
	return stats
}

// blendPosition folds a purchase into the client's per-plan position
// at weighted-average cost, or opens a new position.
func blendPosition(positions []models.PlanPosition, plan *models.Plan, price, qty decimal.Decimal) []models.PlanPosition {
	for i := range positions {
		if positions[i].PlanID != plan.ID {
			continue
		}
		oldQty := positions[i].Qty
		oldAvg := positions[i].AvgPrice
		newQty := oldQty.Add(qty)
		positions[i].Qty = newQty
		positions[i].AvgPrice = price.Mul(qty).Add(oldAvg.Mul(oldQty)).Div(newQty)
		return positions
	}
	return append(positions, models.PlanPosition{
		PlanID:   plan.ID,
		PlanName: plan.PlanName,
		AvgPrice: price,
		Qty:      qty,
	})
}
