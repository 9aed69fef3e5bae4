package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"expensepie/internal/core"
	ports "expensepie/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultExpensesSheet = "Expenses"
	DefaultChartSheet    = "Chart"
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID   string
	ExpensesSheet   string
	ChartSheet      string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	chartSheet    string
}

var _ ports.SnapshotExporter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing service, applying default sheet names.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	expenses := strings.TrimSpace(cfg.ExpensesSheet)
	if expenses == "" {
		expenses = DefaultExpensesSheet
	}
	chart := strings.TrimSpace(cfg.ChartSheet)
	if chart == "" {
		chart = DefaultChartSheet
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		expensesSheet: expenses,
		chartSheet:    chart,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when neither JSON nor file is configured.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	file := strings.TrimSpace(cfg.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		slog.InfoContext(ctx, "Using inline JSON credentials")
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		var err error
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Export clears both sheets and writes the snapshot in a single batch update.
func (c *Client) Export(ctx context.Context, s ports.Snapshot) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	expensesRange := fmt.Sprintf("%s!A:C", c.expensesSheet)
	chartRange := fmt.Sprintf("%s!A:E", c.chartSheet)

	clearReq := &gsheet.BatchClearValuesRequest{Ranges: []string{expensesRange, chartRange}}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, clearReq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheets: %w", err)
	}

	update := &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data: []*gsheet.ValueRange{
			{Range: fmt.Sprintf("%s!A1", c.expensesSheet), Values: ExpenseRows(s.Expenses, s.Categories)},
			{Range: fmt.Sprintf("%s!A1", c.chartSheet), Values: ChartRows(s.Chart)},
		},
	}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, update).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update sheets: %w", err)
	}

	slog.InfoContext(ctx, "Exported ledger snapshot",
		"spreadsheet_id", c.spreadsheetID,
		"version", s.Version,
		"expenses", len(s.Expenses),
		"slices", len(s.Chart.Slices))
	return nil
}

// ExpenseRows renders one row per expense: category label, amount, detail.
func ExpenseRows(expenses []core.Expense, categories []core.Category) [][]any {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Label()
	}
	rows := make([][]any, 0, len(expenses)+1)
	rows = append(rows, []any{"Category", "Amount", "Detail"})
	for _, e := range expenses {
		name, ok := names[e.CategoryID]
		if !ok {
			name = e.CategoryID
		}
		rows = append(rows, []any{name, e.Amount.Units(), e.Detail})
	}
	return rows
}

// ChartRows renders one row per slice with its share and angles.
func ChartRows(b core.Breakdown) [][]any {
	rows := make([][]any, 0, len(b.Slices)+1)
	rows = append(rows, []any{"Category", "Amount", "Share %", "Start°", "End°"})
	for _, s := range b.Slices {
		rows = append(rows, []any{
			s.Tag.Label,
			s.Tag.Amount.Units(),
			round(s.Share()*100, 2),
			round(s.StartAngle, 3),
			round(s.EndAngle, 3),
		})
	}
	return rows
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
