package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"expensepie/internal/core"
	"expensepie/internal/store"

	_ "modernc.org/sqlite"
)

const darkModeKey = "dark_mode"

type SQLiteRepository struct {
	db *sqlx.DB
}

var _ store.Ledger = (*SQLiteRepository)(nil)

type categoryRow struct {
	ID    string `db:"id"`
	Name  string `db:"name"`
	Color string `db:"color"`
	Emoji string `db:"emoji"`
}

type expenseRow struct {
	ID          string `db:"id"`
	CategoryID  string `db:"category_id"`
	AmountCents int64  `db:"amount_cents"`
	Detail      string `db:"detail"`
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SeedIfEmpty inserts seeds when the categories table is empty.
func (r *SQLiteRepository) SeedIfEmpty(ctx context.Context, seeds []core.Category) error {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM categories`); err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, c := range seeds {
		if err := r.SaveCategory(ctx, c); err != nil {
			return fmt.Errorf("seed category %s: %w", c.ID, err)
		}
	}
	slog.InfoContext(ctx, "Seeded categories", "count", len(seeds))
	return nil
}

// Reseed upserts seed categories, used by the seed file watcher.
func (r *SQLiteRepository) Reseed(seeds []core.Category) {
	ctx := context.Background()
	for _, c := range seeds {
		if err := r.SaveCategory(ctx, c); err != nil {
			slog.ErrorContext(ctx, "Failed to reseed category", "id", c.ID, "error", err)
		}
	}
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	var rows []categoryRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name, color, emoji FROM categories ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		c, err := row.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var row categoryRow
	err := r.db.GetContext(ctx, &row, `SELECT id, name, color, emoji FROM categories WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return row.toCore()
}

func (r *SQLiteRepository) SaveCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO categories (id, name, color, emoji)
		VALUES (:id, :name, :color, :emoji)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			emoji = excluded.emoji,
			updated_at = CURRENT_TIMESTAMP`,
		categoryRow{ID: c.ID, Name: c.Name, Color: c.Color.Hex(), Emoji: c.Emoji})
	if err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	n, err := r.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("category %s: %w", id, core.ErrCategoryInUse)
	}
	// The count above can race with an insert; the foreign key cannot.
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("category %s: %w", id, core.ErrCategoryInUse)
	}
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectOneRow(res, "category", id)
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	var rows []expenseRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, category_id, amount_cents, detail FROM expenses ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	var row expenseRow
	err := r.db.GetContext(ctx, &row, `SELECT id, category_id, amount_cents, detail FROM expenses WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) SaveExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO expenses (id, category_id, amount_cents, detail)
		VALUES (:id, :category_id, :amount_cents, :detail)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id,
			amount_cents = excluded.amount_cents,
			detail = excluded.detail,
			updated_at = CURRENT_TIMESTAMP`,
		toExpenseRow(e))
	if isForeignKeyViolation(err) {
		return fmt.Errorf("category %s: %w", e.CategoryID, core.ErrUnknownCategory)
	}
	if err != nil {
		return fmt.Errorf("save expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"category_id", e.CategoryID,
		"amount_cents", e.Amount.Cents)
	return nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE expenses SET
			category_id = :category_id,
			amount_cents = :amount_cents,
			detail = :detail,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = :id`,
		toExpenseRow(e))
	if isForeignKeyViolation(err) {
		return fmt.Errorf("category %s: %w", e.CategoryID, core.ErrUnknownCategory)
	}
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return expectOneRow(res, "expense", e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectOneRow(res, "expense", id)
}

func (r *SQLiteRepository) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM expenses WHERE category_id = ?`, categoryID); err != nil {
		return 0, fmt.Errorf("count expenses by category: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) LoadSettings(ctx context.Context) (core.Settings, error) {
	var value string
	err := r.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, darkModeKey)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settings{}, nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	dark, _ := strconv.ParseBool(value)
	return core.Settings{DarkMode: dark}, nil
}

func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.Settings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		darkModeKey, strconv.FormatBool(s.DarkMode))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (row categoryRow) toCore() (core.Category, error) {
	color, err := core.ParseColor(row.Color)
	if err != nil {
		return core.Category{}, fmt.Errorf("category %s: %w", row.ID, err)
	}
	return core.Category{ID: row.ID, Name: row.Name, Color: color, Emoji: row.Emoji}, nil
}

func (row expenseRow) toCore() core.Expense {
	return core.Expense{
		ID:         row.ID,
		CategoryID: row.CategoryID,
		Amount:     core.Money{Cents: row.AmountCents},
		Detail:     row.Detail,
	}
}

func toExpenseRow(e core.Expense) expenseRow {
	return expenseRow{ID: e.ID, CategoryID: e.CategoryID, AmountCents: e.Amount.Cents, Detail: e.Detail}
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func expectOneRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s rows affected: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}
