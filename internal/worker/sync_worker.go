package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"expensepie/internal/amqp"
	"expensepie/internal/core"
	"expensepie/internal/sheets"
)

// Ledger is the read side the worker exports from.
type Ledger interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	Chart(ctx context.Context, g core.Grouping) (core.Breakdown, error)
}

// SyncWorker mirrors the ledger into a spreadsheet. Every event triggers a
// full snapshot export; events older than the last export are skipped.
type SyncWorker struct {
	ledger   Ledger
	exporter sheets.SnapshotExporter
	grouping core.Grouping

	mu         sync.Mutex
	lastExport time.Time
	version    uint64
	now        func() time.Time
}

func NewSyncWorker(ledger Ledger, exporter sheets.SnapshotExporter, grouping core.Grouping) *SyncWorker {
	return &SyncWorker{
		ledger:   ledger,
		exporter: exporter,
		grouping: grouping,
		now:      time.Now,
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", ev.Kind,
		"entity", ev.Entity,
		"entity_id", ev.EntityID,
		"version", ev.Version)

	if ev.Entity == amqp.EntitySettings {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.lastExport.IsZero() && ev.Timestamp.Before(w.lastExport) {
		slog.DebugContext(ctx, "Event already covered by last export",
			"event_time", ev.Timestamp,
			"last_export", w.lastExport)
		return nil
	}
	return w.exportLocked(ctx, ev.Version)
}

// Resync exports the current snapshot unconditionally. It is the backup
// path in case AMQP messages are lost.
func (w *SyncWorker) Resync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exportLocked(ctx, w.version)
}

// Run resyncs on every tick until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Resync(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) exportLocked(ctx context.Context, version uint64) error {
	started := w.now()

	cats, err := w.ledger.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	exps, err := w.ledger.ListExpenses(ctx)
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}
	chart, err := w.ledger.Chart(ctx, w.grouping)
	if err != nil {
		return fmt.Errorf("build chart: %w", err)
	}

	snap := sheets.Snapshot{
		Version:    version,
		Categories: cats,
		Expenses:   exps,
		Chart:      chart,
	}
	if err := w.exporter.Export(ctx, snap); err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}

	w.lastExport = started
	if version > w.version {
		w.version = version
	}
	return nil
}
