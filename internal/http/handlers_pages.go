package http

import (
	"context"
	"net/http"

	"expensepie/internal/core"
	"expensepie/internal/log"
)

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.events.LogError(r.Context(), "Template execution failed", err, log.OpRender,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, ""))
	}
}

// loadPage gathers everything the index needs. Missing settings fall back to
// defaults rather than failing the page.
func (s *Server) loadPage(ctx context.Context, g core.Grouping) (pageData, error) {
	b, err := s.ledger.Chart(ctx, g)
	if err != nil {
		return pageData{}, err
	}
	cats, err := s.ledger.ListCategories(ctx)
	if err != nil {
		return pageData{}, err
	}
	exps, err := s.ledger.ListExpenses(ctx)
	if err != nil {
		return pageData{}, err
	}
	settings, err := s.ledger.Settings(ctx)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Settings unavailable", log.FieldError, err)
	}
	return pageData{
		Chart:      newChartView(b),
		Categories: newCategoryViews(cats),
		Expenses:   newExpenseViews(exps, cats),
		Colors:     core.ColorNames(),
		DarkMode:   settings.DarkMode,
	}, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := s.loadPage(r.Context(), core.ParseGrouping(r.URL.Query().Get("group")))
	if err != nil {
		s.failHTML(w, r, log.OpRender, err)
		return
	}
	s.render(w, r, "index.html", data)
}

// handleChartPartial renders the SVG pie and its legend.
func (s *Server) handleChartPartial(w http.ResponseWriter, r *http.Request) {
	b, err := s.ledger.Chart(r.Context(), core.ParseGrouping(r.URL.Query().Get("group")))
	if err != nil {
		s.failHTML(w, r, log.OpRender, err)
		return
	}
	s.render(w, r, "chart", newChartView(b))
}

func (s *Server) handleExpensesPartial(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.ListCategories(r.Context())
	if err != nil {
		s.failHTML(w, r, log.OpRender, err)
		return
	}
	exps, err := s.ledger.ListExpenses(r.Context())
	if err != nil {
		s.failHTML(w, r, log.OpRender, err)
		return
	}
	s.render(w, r, "expenses", pageData{
		Categories: newCategoryViews(cats),
		Expenses:   newExpenseViews(exps, cats),
	})
}

func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	settings, err := s.ledger.Settings(r.Context())
	if err != nil {
		s.failHTML(w, r, log.OpRender, err)
		return
	}
	s.render(w, r, "settings.html", pageData{DarkMode: settings.DarkMode})
}
