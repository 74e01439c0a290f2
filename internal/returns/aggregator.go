package returns

import (
	"github.com/shopspring/decimal"

	"advisory/internal/models"
)

// Aggregator estimates profit and cumulative return over recorded
// transactions by applying a movement multiplier to each transaction's
// per-symbol contributed amounts.
type Aggregator struct {
	Source MovementSource
}

// Summary is the portfolio rollup over a set of transactions.
type Summary struct {
	TotalInvested decimal.Decimal `json:"total_invested"`
	TotalReturn   decimal.Decimal `json:"total_return"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
}

// PlanProfit is the estimated profit for one transaction's plan.
type PlanProfit struct {
	PlanID   uint64          `json:"plan_id"`
	PlanName string          `json:"plan_name"`
	Invested decimal.Decimal `json:"invested"`
	Profit   decimal.Decimal `json:"profit"`
	Return   decimal.Decimal `json:"return"`
}

func (a *Aggregator) source() MovementSource {
	if a != nil && a.Source != nil {
		return a.Source
	}
	return &UniformSource{}
}

// profitOf sums contriAmount*multiplier over the transaction's stats.
func (a *Aggregator) profitOf(tx *models.Transaction) decimal.Decimal {
	src := a.source()
	profit := decimal.Zero
	for _, st := range tx.PlanStats {
		profit = profit.Add(st.ContriAmount.Mul(src.Multiplier(st.Symbol)))
	}
	return profit
}

// PerTransaction evaluates each transaction independently. Cumulative
// return per row is invested plus estimated profit.
func (a *Aggregator) PerTransaction(txs []models.Transaction) []PlanProfit {
	out := make([]PlanProfit, 0, len(txs))
	for i := range txs {
		profit := a.profitOf(&txs[i])
		out = append(out, PlanProfit{
			PlanID:   txs[i].PlanID,
			PlanName: txs[i].PlanName,
			Invested: txs[i].InvestedAmount,
			Profit:   profit,
			Return:   txs[i].InvestedAmount.Add(profit),
		})
	}
	return out
}

// Aggregate rolls the per-transaction figures up into a portfolio
// summary where TotalReturn equals TotalInvested plus TotalProfit.
func (a *Aggregator) Aggregate(txs []models.Transaction) Summary {
	var s Summary
	for i := range txs {
		profit := a.profitOf(&txs[i])
		s.TotalInvested = s.TotalInvested.Add(txs[i].InvestedAmount)
		s.TotalProfit = s.TotalProfit.Add(profit)
	}
	s.TotalReturn = s.TotalInvested.Add(s.TotalProfit)
	return s
}
