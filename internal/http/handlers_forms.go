package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"expensepie/internal/core"
	"expensepie/internal/log"
)

// failHTML logs err and answers with an HTML fragment. htmx requests also get
// an error notification.
func (s *Server) failHTML(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := s.logFailure(r, op, err)
	resp := ErrorResponse(status, msg)
	if isHTMX(r) {
		resp.TriggerErrorNotification(msg)
	}
	resp.Write(w)
}

// logFailure picks the status for err and logs it at a matching level.
func (s *Server) logFailure(r *http.Request, op string, err error) (int, string) {
	status, msg := statusForError(err)
	fields := log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", "")
	if status >= http.StatusInternalServerError {
		s.events.LogError(r.Context(), "Request failed", err, op, fields)
	} else {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Request rejected",
			fields.WithError(err).WithOperation(op).ToSlice()...)
	}
	return status, msg
}

// formDone redirects plain form posts back to target and tells htmx pages
// to refresh.
func (s *Server) formDone(w http.ResponseWriter, r *http.Request, target, msg string) {
	if !isHTMX(r) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerLedgerChanged(s.ledger.Version()).
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + template.HTMLEscapeString(msg) + `</div>`).
		Write(w)
}

func parsedBody(r *http.Request) (*RequestBodyParser, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return p, nil
}

func (s *Server) handleCategoryCreateForm(w http.ResponseWriter, r *http.Request) {
	c, err := s.createCategory(r)
	if err != nil {
		s.failHTML(w, r, log.OpCreate, err)
		return
	}
	s.formDone(w, r, "/", "Category "+c.Name+" added")
}

func (s *Server) handleCategoryUpdateForm(w http.ResponseWriter, r *http.Request) {
	c, err := s.updateCategory(r, r.PathValue("id"))
	if err != nil {
		s.failHTML(w, r, log.OpUpdate, err)
		return
	}
	s.formDone(w, r, "/", "Category "+c.Name+" updated")
}

func (s *Server) handleCategoryDeleteForm(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		s.failHTML(w, r, log.OpDelete, err)
		return
	}
	s.formDone(w, r, "/", "Category deleted")
}

func (s *Server) handleExpenseCreateForm(w http.ResponseWriter, r *http.Request) {
	e, err := s.createExpense(r)
	if err != nil {
		s.failHTML(w, r, log.OpCreate, err)
		return
	}
	s.formDone(w, r, "/", "Expense of "+formatEuros(e.Amount.Cents)+" recorded")
}

func (s *Server) handleExpenseUpdateForm(w http.ResponseWriter, r *http.Request) {
	e, err := s.updateExpense(r, r.PathValue("id"))
	if err != nil {
		s.failHTML(w, r, log.OpUpdate, err)
		return
	}
	s.formDone(w, r, "/", "Expense updated to "+formatEuros(e.Amount.Cents))
}

func (s *Server) handleExpenseDeleteForm(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		s.failHTML(w, r, log.OpDelete, err)
		return
	}
	s.formDone(w, r, "/", "Expense deleted")
}

func (s *Server) handleSettingsForm(w http.ResponseWriter, r *http.Request) {
	settings, err := s.updateSettings(r)
	if err != nil {
		s.failHTML(w, r, log.OpUpdate, err)
		return
	}
	if !isHTMX(r) {
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerSettingsChanged(settings.DarkMode).
		Status(http.StatusNoContent).
		Write(w)
}

func (s *Server) updateSettings(r *http.Request) (core.Settings, error) {
	p, err := parsedBody(r)
	if err != nil {
		return core.Settings{}, err
	}
	return s.ledger.SetDarkMode(r.Context(), checked(p.Get("dark_mode")))
}

// checked reads an HTML checkbox or a JSON boolean.
func checked(v string) bool {
	if strings.EqualFold(v, "on") {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

// Shared by the form and JSON handlers.

func (s *Server) createCategory(r *http.Request) (core.Category, error) {
	p, err := parsedBody(r)
	if err != nil {
		return core.Category{}, err
	}
	in, err := parseCategoryInput(p)
	if err != nil {
		return core.Category{}, err
	}
	if !in.HasColor {
		return core.Category{}, core.ErrUnknownColor
	}
	return s.ledger.AddCategory(r.Context(), in.Name, in.Color, in.Emoji)
}

// updateCategory applies only the fields present in the body.
func (s *Server) updateCategory(r *http.Request, id string) (core.Category, error) {
	p, err := parsedBody(r)
	if err != nil {
		return core.Category{}, err
	}
	in, err := parseCategoryInput(p)
	if err != nil {
		return core.Category{}, err
	}
	c, err := s.ledger.Category(r.Context(), id)
	if err != nil {
		return core.Category{}, err
	}
	if p.Has("name") {
		c.Name = in.Name
	}
	if in.HasColor {
		c.Color = in.Color
	}
	if in.HasEmoji {
		c.Emoji = in.Emoji
	}
	return s.ledger.UpdateCategory(r.Context(), c)
}

func (s *Server) createExpense(r *http.Request) (core.Expense, error) {
	p, err := parsedBody(r)
	if err != nil {
		return core.Expense{}, err
	}
	in, err := parseExpenseInput(p)
	if err != nil {
		return core.Expense{}, err
	}
	return s.ledger.AddExpense(r.Context(), in.CategoryID, in.Amount, in.Detail)
}

// updateExpense applies only the fields present in the body.
func (s *Server) updateExpense(r *http.Request, id string) (core.Expense, error) {
	p, err := parsedBody(r)
	if err != nil {
		return core.Expense{}, err
	}
	e, err := s.ledger.Expense(r.Context(), id)
	if err != nil {
		return core.Expense{}, err
	}
	if p.Has("amount") {
		m, err := core.ParseMoney(p.Get("amount"))
		if err != nil {
			return core.Expense{}, err
		}
		e.Amount = m
	}
	if p.Has("category_id") {
		e.CategoryID = p.Get("category_id")
	}
	if p.Has("detail") {
		e.Detail = p.Get("detail")
	}
	return s.ledger.UpdateExpense(r.Context(), e)
}
