package sheets

import (
	"context"

	"expensepie/internal/core"
)

// Snapshot is the ledger state pushed to an external spreadsheet.
type Snapshot struct {
	Version    uint64
	Categories []core.Category
	Expenses   []core.Expense
	Chart      core.Breakdown
}

// Ports for outbound adapters.
type (
	// SnapshotExporter replaces the remote copy with s.
	SnapshotExporter interface {
		Export(ctx context.Context, s Snapshot) error
	}
)
