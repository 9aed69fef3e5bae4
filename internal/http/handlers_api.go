package http

import (
	"net/http"
	"strings"

	"expensepie/internal/core"
	"expensepie/internal/log"
)

type categoryJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Emoji string `json:"emoji,omitempty"`
}

type expenseJSON struct {
	ID          string `json:"id"`
	CategoryID  string `json:"category_id"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Detail      string `json:"detail,omitempty"`
}

type sliceJSON struct {
	StartAngle  float64 `json:"start_angle"`
	EndAngle    float64 `json:"end_angle"`
	Sweep       float64 `json:"sweep"`
	Share       float64 `json:"share"`
	CategoryID  string  `json:"category_id"`
	ExpenseID   string  `json:"expense_id,omitempty"`
	Label       string  `json:"label"`
	Color       string  `json:"color"`
	AmountCents int64   `json:"amount_cents"`
}

type chartJSON struct {
	Grouping   string      `json:"grouping"`
	Version    uint64      `json:"version"`
	TotalCents int64       `json:"total_cents"`
	Slices     []sliceJSON `json:"slices"`
}

type settingsJSON struct {
	DarkMode bool `json:"dark_mode"`
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, Color: c.Color.Hex(), Emoji: c.Emoji}
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		CategoryID:  e.CategoryID,
		AmountCents: e.Amount.Cents,
		Amount:      e.Amount.String(),
		Detail:      e.Detail,
	}
}

func toChartJSON(b core.Breakdown, version uint64) chartJSON {
	out := chartJSON{
		Grouping:   string(b.Grouping),
		Version:    version,
		TotalCents: b.Total.Cents,
		Slices:     make([]sliceJSON, len(b.Slices)),
	}
	for i, s := range b.Slices {
		out.Slices[i] = sliceJSON{
			StartAngle:  s.StartAngle,
			EndAngle:    s.EndAngle,
			Sweep:       s.Sweep(),
			Share:       s.Share(),
			CategoryID:  s.Tag.CategoryID,
			ExpenseID:   s.Tag.ExpenseID,
			Label:       s.Tag.Label,
			Color:       s.Tag.Color.Hex(),
			AmountCents: s.Tag.Amount.Cents,
		}
	}
	return out
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func (s *Server) failJSON(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := s.logFailure(r, op, err)
	JSONError(status, msg).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewHTMXResponse().Status(status).BodyJSON(v).Write(w)
}

func (s *Server) handleAPIChart(w http.ResponseWriter, r *http.Request) {
	version := s.ledger.Version()
	b, err := s.ledger.Chart(r.Context(), core.ParseGrouping(r.URL.Query().Get("group")))
	if err != nil {
		s.failJSON(w, r, log.OpRender, err)
		return
	}
	writeJSON(w, http.StatusOK, toChartJSON(b, version))
}

func (s *Server) handleAPIListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.ListCategories(r.Context())
	if err != nil {
		s.failJSON(w, r, log.OpList, err)
		return
	}
	out := make([]categoryJSON, len(cats))
	for i, c := range cats {
		out[i] = toCategoryJSON(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPICreateCategory(w http.ResponseWriter, r *http.Request) {
	c, err := s.createCategory(r)
	if err != nil {
		s.failJSON(w, r, log.OpCreate, err)
		return
	}
	w.Header().Set("Location", "/api/categories/"+c.ID)
	writeJSON(w, http.StatusCreated, toCategoryJSON(c))
}

func (s *Server) handleAPIUpdateCategory(w http.ResponseWriter, r *http.Request) {
	c, err := s.updateCategory(r, r.PathValue("id"))
	if err != nil {
		s.failJSON(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryJSON(c))
}

func (s *Server) handleAPIDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		s.failJSON(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIListExpenses(w http.ResponseWriter, r *http.Request) {
	exps, err := s.ledger.ListExpenses(r.Context())
	if err != nil {
		s.failJSON(w, r, log.OpList, err)
		return
	}
	out := make([]expenseJSON, len(exps))
	for i, e := range exps {
		out[i] = toExpenseJSON(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPICreateExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.createExpense(r)
	if err != nil {
		s.failJSON(w, r, log.OpCreate, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense created",
		log.NewFields().WithExpense(e.ID, e.CategoryID, e.Amount.Cents).ToSlice()...)
	w.Header().Set("Location", "/api/expenses/"+e.ID)
	writeJSON(w, http.StatusCreated, toExpenseJSON(e))
}

func (s *Server) handleAPIUpdateExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.updateExpense(r, r.PathValue("id"))
	if err != nil {
		s.failJSON(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseJSON(e))
}

func (s *Server) handleAPIDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		s.failJSON(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPISettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.ledger.Settings(r.Context())
	if err != nil {
		s.failJSON(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsJSON{DarkMode: settings.DarkMode})
}

func (s *Server) handleAPIUpdateSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.updateSettings(r)
	if err != nil {
		s.failJSON(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsJSON{DarkMode: settings.DarkMode})
}
