package engine

import (
	"github.com/shopspring/decimal"

	"stocktrends/internal/domain"
)

// lotChange is one step of a sell consumption plan: the lot to mutate and the
// share count left in it afterwards. Zero remaining means the lot is deleted.
type lotChange struct {
	positionID int64
	remaining  decimal.Decimal
}

// buildSellPlan computes the FIFO consumption plan for selling shares of
// symbol from the given lots. The slice must be in creation order; the plan
// consumes matching lots oldest-first, short-circuiting as soon as the
// requested amount is covered. Every fully consumed lot appears with zero
// remaining; the boundary lot appears with whatever is left after partial
// consumption.
//
// The function has no side effects. It returns domain.ErrInsufficientShares
// when the lots do not cover the requested amount in aggregate.
func buildSellPlan(positions []domain.Position, symbol string, shares decimal.Decimal) ([]lotChange, error) {
	seen := decimal.Zero
	var plan []lotChange

	for _, p := range positions {
		if p.Symbol != symbol {
			continue
		}
		seen = seen.Add(p.Shares)

		if seen.Cmp(shares) >= 0 {
			// Boundary lot: reduce in place (delete when consumed exactly).
			plan = append(plan, lotChange{positionID: p.ID, remaining: seen.Sub(shares)})
			return plan, nil
		}
		plan = append(plan, lotChange{positionID: p.ID, remaining: decimal.Zero})
	}

	return nil, domain.ErrInsufficientShares
}
