package worker

import (
	"context"

	"expensepie/internal/core"
	"expensepie/internal/store"
)

// StoreLedger reads straight from a store. The worker shares the database
// with the server but not its version counter, so nothing is cached here.
type StoreLedger struct {
	store.Ledger
}

var _ Ledger = StoreLedger{}

func (l StoreLedger) Chart(ctx context.Context, g core.Grouping) (core.Breakdown, error) {
	cats, err := l.ListCategories(ctx)
	if err != nil {
		return core.Breakdown{}, err
	}
	exps, err := l.ListExpenses(ctx)
	if err != nil {
		return core.Breakdown{}, err
	}
	return core.BuildBreakdown(g, exps, cats)
}
