package ledger

import (
	"strings"

	"advisory/internal/models"
)

// MergeHoldings computes the new holdings list for a basket edit.
// The result contains exactly the proposed symbols (first occurrence
// wins on duplicates); current holdings absent from the proposal are
// dropped by the caller's replace semantics.
//
// Per symbol:
//   - absent from current: the proposed qty/price is adopted as-is;
//   - qty increased: the average price blends the existing cost basis
//     with the incremental purchase at the proposed price;
//   - qty unchanged or reduced: the old average price is kept and only
//     the quantity updates. A reduction never moves cost basis.
//
// A proposed qty of 0 for an existing symbol is a reduction: the entry
// is kept at qty 0 with its old average price. Removal is a separate
// caller concern.
func MergeHoldings(current []models.Holding, proposed []models.HoldingEdit) ([]models.Holding, error) {
	merged := make([]models.Holding, 0, len(proposed))
	seen := make(map[string]struct{}, len(proposed))

	for _, edit := range proposed {
		symbol := strings.TrimSpace(edit.Symbol)
		if symbol == "" {
			return nil, BadRequest("holding symbol is required")
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}

		if edit.Qty.IsNegative() {
			return nil, BadRequest("holding quantity must not be negative: " + symbol)
		}
		if !edit.Price.IsPositive() {
			return nil, BadRequest("holding price must be positive: " + symbol)
		}

		cur, ok := findHolding(current, symbol)
		switch {
		case !ok:
			merged = append(merged, models.Holding{
				Symbol:   symbol,
				Qty:      edit.Qty,
				AvgPrice: edit.Price,
			})
		case edit.Qty.GreaterThan(cur.Qty):
			// Top-up: blend old basis with the incremental purchase.
			incr := edit.Qty.Sub(cur.Qty)
			newAvg := cur.Qty.Mul(cur.AvgPrice).
				Add(incr.Mul(edit.Price)).
				Div(edit.Qty)
			merged = append(merged, models.Holding{
				Symbol:   symbol,
				Qty:      edit.Qty,
				AvgPrice: newAvg,
			})
		default:
			merged = append(merged, models.Holding{
				Symbol:   symbol,
				Qty:      edit.Qty,
				AvgPrice: cur.AvgPrice,
			})
		}
	}

	return merged, nil
}

func findHolding(holdings []models.Holding, symbol string) (models.Holding, bool) {
	for _, h := range holdings {
		if h.Symbol == symbol {
			return h, true
		}
	}
	return models.Holding{}, false
}
