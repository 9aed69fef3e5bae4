package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"expensepie/internal/core"
	"expensepie/internal/store"
)

// Store keeps the ledger in process memory, in insertion order.
type Store struct {
	mu       sync.Mutex
	cats     []core.Category
	items    []core.Expense
	settings core.Settings
}

var _ store.Ledger = (*Store)(nil)

func New(cats []core.Category) *Store {
	s := &Store{}
	s.Reseed(cats)
	return s
}

// NewFromDir seeds categories from dir/categories.yaml, falling back to the
// defaults when the file is missing or unreadable.
func NewFromDir(dir string) *Store {
	return New(store.SeedsFromDir(dir))
}

// Reseed upserts seed categories by ID. Existing categories keep their
// position; new ones are appended. Categories absent from seeds are kept.
func (s *Store) Reseed(seeds []core.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range seeds {
		if i := s.categoryIndex(c.ID); i >= 0 {
			s.cats[i] = c
			continue
		}
		s.cats = append(s.cats, c)
	}
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cats), nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(id)
	if i < 0 {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	return s.cats[i], nil
}

func (s *Store) SaveCategory(_ context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.categoryIndex(c.ID); i >= 0 {
		s.cats[i] = c
		return nil
	}
	s.cats = append(s.cats, c)
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(id)
	if i < 0 {
		return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if n := s.countByCategory(id); n > 0 {
		return fmt.Errorf("category %s used by %d expenses: %w", id, n, core.ErrCategoryInUse)
	}
	s.cats = slices.Delete(s.cats, i, i+1)
	return nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items), nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	return s.items[i], nil
}

func (s *Store) SaveExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryIndex(e.CategoryID) < 0 {
		return fmt.Errorf("category %s: %w", e.CategoryID, core.ErrUnknownCategory)
	}
	if i := s.expenseIndex(e.ID); i >= 0 {
		s.items[i] = e
		return nil
	}
	s.items = append(s.items, e)
	return nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(e.ID)
	if i < 0 {
		return fmt.Errorf("expense %s: %w", e.ID, core.ErrNotFound)
	}
	if s.categoryIndex(e.CategoryID) < 0 {
		return fmt.Errorf("category %s: %w", e.CategoryID, core.ErrUnknownCategory)
	}
	s.items[i] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(id)
	if i < 0 {
		return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

func (s *Store) CountByCategory(_ context.Context, categoryID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countByCategory(categoryID), nil
}

func (s *Store) countByCategory(categoryID string) int {
	n := 0
	for _, e := range s.items {
		if e.CategoryID == categoryID {
			n++
		}
	}
	return n
}

func (s *Store) LoadSettings(_ context.Context) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, settings core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}

func (s *Store) categoryIndex(id string) int {
	return slices.IndexFunc(s.cats, func(c core.Category) bool { return c.ID == id })
}

func (s *Store) expenseIndex(id string) int {
	return slices.IndexFunc(s.items, func(e core.Expense) bool { return e.ID == id })
}
