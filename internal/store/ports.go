// Package store defines the persistence ports used by the ledger service.
package store

import (
	"context"

	"expensepie/internal/core"
)

// Ports for ledger persistence. List operations return insertion order;
// lookups of unknown IDs fail with core.ErrNotFound.
type (
	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id string) (core.Category, error)
		// SaveCategory inserts c, or replaces the category with the same ID in place.
		SaveCategory(ctx context.Context, c core.Category) error
		// DeleteCategory fails with core.ErrCategoryInUse while expenses
		// reference the category.
		DeleteCategory(ctx context.Context, id string) error
	}

	ExpenseStore interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		GetExpense(ctx context.Context, id string) (core.Expense, error)
		// SaveExpense inserts e, or replaces the expense with the same ID in
		// place. It fails with core.ErrUnknownCategory when the category is gone.
		SaveExpense(ctx context.Context, e core.Expense) error
		// UpdateExpense replaces an existing expense in place and fails with
		// core.ErrNotFound instead of recreating a deleted one.
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id string) error
		// CountByCategory returns how many expenses reference the category.
		CountByCategory(ctx context.Context, categoryID string) (int, error)
	}

	SettingsStore interface {
		LoadSettings(ctx context.Context) (core.Settings, error)
		SaveSettings(ctx context.Context, s core.Settings) error
	}

	// Ledger is everything a backend must provide.
	Ledger interface {
		CategoryStore
		ExpenseStore
		SettingsStore
	}
)
