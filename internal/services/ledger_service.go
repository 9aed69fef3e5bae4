package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"expensepie/internal/amqp"
	"expensepie/internal/cache"
	"expensepie/internal/core"
	"expensepie/internal/metrics"
	"expensepie/internal/store"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// reseeder is implemented by backends that accept seed categories.
type reseeder interface {
	Reseed(seeds []core.Category)
}

const (
	defaultChartCacheSize = 16
	defaultChartCacheTTL  = 10 * time.Minute
)

// LedgerService orchestrates ledger operations across the store, the chart
// cache and the event publisher.
type LedgerService struct {
	store     store.Ledger
	publisher EventPublisher
	metrics   *metrics.Registry
	charts    *cache.LRUCache[core.Breakdown]
	flight    singleflight.Group
	// catMu keeps the name uniqueness check and the save together.
	catMu     sync.Mutex
	version   atomic.Uint64
	newID     func() string
}

type Option func(*LedgerService)

// WithPublisher sends a LedgerEvent after every mutation.
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(s *LedgerService) { s.metrics = m }
}

// WithChartCache sizes the breakdown cache.
func WithChartCache(size int, ttl time.Duration) Option {
	return func(s *LedgerService) { s.charts = cache.NewLRUCache[core.Breakdown](size, ttl) }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *LedgerService) { s.newID = fn }
}

func NewLedgerService(st store.Ledger, opts ...Option) *LedgerService {
	s := &LedgerService{
		store: st,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.charts == nil {
		s.charts = cache.NewLRUCache[core.Breakdown](defaultChartCacheSize, defaultChartCacheTTL)
	}
	return s
}

// ChartCache exposes the breakdown cache so it can be swept periodically.
func (s *LedgerService) ChartCache() *cache.LRUCache[core.Breakdown] {
	return s.charts
}

// Version increases by one with every successful mutation.
func (s *LedgerService) Version() uint64 {
	return s.version.Load()
}

// Categories

func (s *LedgerService) ListCategories(ctx context.Context) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *LedgerService) Category(ctx context.Context, id string) (core.Category, error) {
	return s.store.GetCategory(ctx, id)
}

// AddCategory creates a category with a fresh ID. Names are unique
// regardless of case.
func (s *LedgerService) AddCategory(ctx context.Context, name string, color core.Color, emoji string) (core.Category, error) {
	c := core.Category{
		ID:    s.newID(),
		Name:  strings.TrimSpace(name),
		Color: color,
		Emoji: strings.TrimSpace(emoji),
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.saveUniqueCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	s.mutated(ctx, amqp.EventCreated, amqp.EntityCategory, c.ID)
	return c, nil
}

// UpdateCategory replaces an existing category in place.
func (s *LedgerService) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Emoji = strings.TrimSpace(c.Emoji)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if _, err := s.store.GetCategory(ctx, c.ID); err != nil {
		return core.Category{}, err
	}
	if err := s.saveUniqueCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	s.mutated(ctx, amqp.EventUpdated, amqp.EntityCategory, c.ID)
	return c, nil
}

// DeleteCategory removes a category that no expense references. The store
// checks references and deletes in one step.
func (s *LedgerService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.mutated(ctx, amqp.EventDeleted, amqp.EntityCategory, id)
	return nil
}

func (s *LedgerService) saveUniqueCategory(ctx context.Context, c core.Category) error {
	s.catMu.Lock()
	defer s.catMu.Unlock()
	if err := s.ensureUniqueName(ctx, c); err != nil {
		return err
	}
	if err := s.store.SaveCategory(ctx, c); err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}

func (s *LedgerService) ensureUniqueName(ctx context.Context, c core.Category) error {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	for _, other := range cats {
		if other.ID != c.ID && strings.EqualFold(other.Name, c.Name) {
			return fmt.Errorf("%q: %w", c.Name, core.ErrDuplicateName)
		}
	}
	return nil
}

// Reseed forwards seed categories to the backend and invalidates charts.
func (s *LedgerService) Reseed(seeds []core.Category) {
	r, ok := s.store.(reseeder)
	if !ok {
		slog.Warn("Backend does not support reseeding")
		return
	}
	r.Reseed(seeds)
	s.mutated(context.Background(), amqp.EventUpdated, amqp.EntityCategory, "")
}

// Expenses

func (s *LedgerService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	exps, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return exps, nil
}

func (s *LedgerService) Expense(ctx context.Context, id string) (core.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

// AddExpense records a new expense against an existing category.
func (s *LedgerService) AddExpense(ctx context.Context, categoryID string, amount core.Money, detail string) (core.Expense, error) {
	e := core.Expense{
		ID:         s.newID(),
		CategoryID: strings.TrimSpace(categoryID),
		Amount:     amount,
		Detail:     strings.TrimSpace(detail),
	}
	if err := s.checkExpense(ctx, e); err != nil {
		return core.Expense{}, err
	}
	if err := s.store.SaveExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.mutated(ctx, amqp.EventCreated, amqp.EntityExpense, e.ID)
	return e, nil
}

// UpdateExpense replaces an existing expense, keeping its position. An
// expense deleted concurrently stays deleted.
func (s *LedgerService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.CategoryID = strings.TrimSpace(e.CategoryID)
	e.Detail = strings.TrimSpace(e.Detail)
	if _, err := s.store.GetExpense(ctx, e.ID); err != nil {
		return core.Expense{}, err
	}
	if err := s.checkExpense(ctx, e); err != nil {
		return core.Expense{}, err
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.mutated(ctx, amqp.EventUpdated, amqp.EntityExpense, e.ID)
	return e, nil
}

// checkExpense gives early, specific errors. The store re-checks the
// category when writing.
func (s *LedgerService) checkExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, err := s.store.GetCategory(ctx, e.CategoryID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("category %s: %w", e.CategoryID, core.ErrUnknownCategory)
		}
		return fmt.Errorf("get category: %w", err)
	}
	return nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.mutated(ctx, amqp.EventDeleted, amqp.EntityExpense, id)
	return nil
}

// Settings

func (s *LedgerService) Settings(ctx context.Context) (core.Settings, error) {
	return s.store.LoadSettings(ctx)
}

func (s *LedgerService) SetDarkMode(ctx context.Context, on bool) (core.Settings, error) {
	settings, err := s.store.LoadSettings(ctx)
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings.DarkMode = on
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	// Settings never affect the chart, so the version is left alone.
	s.metrics.ObserveMutation(amqp.EntitySettings, string(amqp.EventUpdated))
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventUpdated, amqp.EntitySettings, "dark_mode", s.Version()))
	return settings, nil
}

// Chart

// Chart returns the breakdown for the current ledger. Results are cached per
// version and grouping; concurrent misses share a single computation.
func (s *LedgerService) Chart(ctx context.Context, g core.Grouping) (core.Breakdown, error) {
	if g != core.GroupByCategory {
		g = core.GroupByExpense
	}
	key := fmt.Sprintf("%d:%s", s.Version(), g)

	if b, ok := s.charts.Get(key); ok {
		s.metrics.ObserveCache(true)
		return b, nil
	}
	s.metrics.ObserveCache(false)

	v, err, shared := s.flight.Do(key, func() (interface{}, error) {
		return s.computeChart(ctx, g, key)
	})
	if err != nil {
		return core.Breakdown{}, err
	}
	if shared {
		slog.DebugContext(ctx, "Shared chart computation", "key", key)
	}
	return v.(core.Breakdown), nil
}

func (s *LedgerService) computeChart(ctx context.Context, g core.Grouping, key string) (core.Breakdown, error) {
	start := time.Now()

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return core.Breakdown{}, fmt.Errorf("list categories: %w", err)
	}
	exps, err := s.store.ListExpenses(ctx)
	if err != nil {
		return core.Breakdown{}, fmt.Errorf("list expenses: %w", err)
	}

	b, err := core.BuildBreakdown(g, exps, cats)
	s.metrics.ObservePartition(string(g), len(b.Slices), time.Since(start), err)
	if err != nil {
		return core.Breakdown{}, fmt.Errorf("build breakdown: %w", err)
	}

	s.charts.Set(key, b)
	slog.DebugContext(ctx, "Chart computed",
		"grouping", g,
		"slices", len(b.Slices),
		"total", b.Total.String(),
		"duration", time.Since(start))
	return b, nil
}

// mutated bumps the version and announces the change.
func (s *LedgerService) mutated(ctx context.Context, kind amqp.EventKind, entity, id string) {
	v := s.version.Add(1)
	s.metrics.ObserveMutation(entity, string(kind))
	slog.InfoContext(ctx, "Ledger changed", "kind", kind, "entity", entity, "id", id, "version", v)
	s.publish(ctx, amqp.NewLedgerEvent(kind, entity, id, v))
}

// publish never fails the caller; the change is already stored.
func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishLedgerEvent(ctx, ev)
	s.metrics.ObservePublish(err)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"entity", ev.Entity,
			"entity_id", ev.EntityID,
			"error", err)
	}
}

// Close closes the store and publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error

	if c, ok := s.store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
