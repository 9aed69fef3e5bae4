package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expensepie/internal/chart"
	"expensepie/internal/core"
	ports "expensepie/internal/sheets"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestNewWithService_DefaultSheetNames(t *testing.T) {
	c := NewWithService(nil, Config{SpreadsheetID: " id "})
	if c.expensesSheet != DefaultExpensesSheet || c.chartSheet != DefaultChartSheet {
		t.Errorf("unexpected sheet names %q %q", c.expensesSheet, c.chartSheet)
	}
	if c.spreadsheetID != "id" {
		t.Errorf("spreadsheet id not trimmed: %q", c.spreadsheetID)
	}
}

func TestExport_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if err := c.Export(context.Background(), ports.Snapshot{}); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestExpenseRows(t *testing.T) {
	cats := []core.Category{{ID: "food", Name: "Food", Emoji: "🍔"}}
	exps := []core.Expense{
		{ID: "1", CategoryID: "food", Amount: core.Money{Cents: 1250}, Detail: "pizza"},
		{ID: "2", CategoryID: "gone", Amount: core.Money{Cents: 100}},
	}

	rows := ExpenseRows(exps, cats)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "🍔 Food" || rows[1][1] != 12.5 || rows[1][2] != "pizza" {
		t.Errorf("unexpected row %v", rows[1])
	}
	if rows[2][0] != "gone" {
		t.Errorf("unknown category should fall back to id, got %v", rows[2][0])
	}
}

func TestChartRows(t *testing.T) {
	b := core.Breakdown{Slices: []chart.Slice[core.SliceTag]{
		{StartAngle: 0, EndAngle: 120, Tag: core.SliceTag{Label: "A", Amount: core.Money{Cents: 100}}},
		{StartAngle: 120, EndAngle: 360, Tag: core.SliceTag{Label: "B", Amount: core.Money{Cents: 200}}},
	}}

	rows := ChartRows(b)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[1][2] != 33.33 {
		t.Errorf("share = %v, want 33.33", rows[1][2])
	}
	if rows[2][3] != 120.0 || rows[2][4] != 360.0 {
		t.Errorf("angles = %v %v", rows[2][3], rows[2][4])
	}
}

type recordedCall struct {
	method string
	path   string
	body   []byte
}

func TestExport_SendsClearThenUpdate(t *testing.T) {
	var mu sync.Mutex
	var calls []recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recordedCall{method: r.Method, path: r.URL.Path, body: body})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	c := NewWithService(svc, Config{SpreadsheetID: "abc"})

	snap := ports.Snapshot{
		Version:    3,
		Categories: []core.Category{{ID: "food", Name: "Food"}},
		Expenses:   []core.Expense{{ID: "1", CategoryID: "food", Amount: core.Money{Cents: 500}}},
		Chart: core.Breakdown{Slices: []chart.Slice[core.SliceTag]{
			{StartAngle: 0, EndAngle: 360, Tag: core.SliceTag{Label: "Food", Amount: core.Money{Cents: 500}}},
		}},
	}
	if err := c.Export(context.Background(), snap); err != nil {
		t.Fatalf("Export: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if !strings.HasSuffix(calls[0].path, "/spreadsheets/abc/values:batchClear") {
		t.Errorf("first call path = %s", calls[0].path)
	}
	if !strings.HasSuffix(calls[1].path, "/spreadsheets/abc/values:batchUpdate") {
		t.Errorf("second call path = %s", calls[1].path)
	}

	var req gsheet.BatchUpdateValuesRequest
	if err := json.Unmarshal(calls[1].body, &req); err != nil {
		t.Fatalf("decode update body: %v", err)
	}
	if len(req.Data) != 2 || req.Data[0].Range != "Expenses!A1" || req.Data[1].Range != "Chart!A1" {
		t.Errorf("unexpected ranges in %+v", req.Data)
	}
	if len(req.Data[1].Values) != 2 {
		t.Errorf("chart sheet should have header + 1 row, got %d", len(req.Data[1].Values))
	}
}
