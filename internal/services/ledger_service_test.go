package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensepie/internal/amqp"
	"expensepie/internal/core"
	"expensepie/internal/metrics"
	"expensepie/internal/store"
	"expensepie/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, fmt.Sprintf("%s:%s", ev.Entity, ev.Kind))
	}
	return out
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestService(t *testing.T, opts ...Option) (*LedgerService, *memory.Store) {
	t.Helper()
	st := memory.New(store.DefaultSeeds())
	opts = append([]Option{WithIDGenerator(sequentialIDs())}, opts...)
	return NewLedgerService(st, opts...), st
}

func TestAddExpenseAndChart(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.AddExpense(ctx, "food", core.Money{Cents: 1000}, "lunch")
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, "transport", core.Money{Cents: 3000}, "")
	require.NoError(t, err)

	b, err := svc.Chart(ctx, core.GroupByExpense)
	require.NoError(t, err)
	require.Len(t, b.Slices, 2)
	assert.Equal(t, int64(4000), b.Total.Cents)
	assert.InDelta(t, 0, b.Slices[0].StartAngle, 1e-9)
	assert.InDelta(t, 90, b.Slices[0].EndAngle, 1e-9)
	assert.InDelta(t, 360, b.Slices[1].EndAngle, 1e-9)
	assert.Equal(t, "id-1", b.Slices[0].Tag.ExpenseID)
}

func TestChartEmptyLedger(t *testing.T) {
	svc, _ := newTestService(t)
	b, err := svc.Chart(context.Background(), core.GroupByCategory)
	require.NoError(t, err)
	assert.True(t, b.Empty())
	assert.Equal(t, core.GroupByCategory, b.Grouping)
}

func TestChartGroupedByCategory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for _, cents := range []int64{500, 500} {
		_, err := svc.AddExpense(ctx, "food", core.Money{Cents: cents}, "")
		require.NoError(t, err)
	}
	_, err := svc.AddExpense(ctx, "health", core.Money{Cents: 1000}, "")
	require.NoError(t, err)

	b, err := svc.Chart(ctx, core.GroupByCategory)
	require.NoError(t, err)
	require.Len(t, b.Slices, 2)
	assert.Equal(t, "food", b.Slices[0].Tag.CategoryID)
	assert.InDelta(t, 180, b.Slices[0].EndAngle, 1e-9)
}

func TestChartCacheInvalidatedByMutation(t *testing.T) {
	ctx := context.Background()
	reg := metrics.New(prometheus.NewRegistry())
	svc, _ := newTestService(t, WithMetrics(reg))

	_, err := svc.AddExpense(ctx, "food", core.Money{Cents: 100}, "")
	require.NoError(t, err)

	first, err := svc.Chart(ctx, core.GroupByExpense)
	require.NoError(t, err)
	again, err := svc.Chart(ctx, core.GroupByExpense)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("miss")))

	_, err = svc.AddExpense(ctx, "food", core.Money{Cents: 100}, "")
	require.NoError(t, err)
	after, err := svc.Chart(ctx, core.GroupByExpense)
	require.NoError(t, err)
	assert.Len(t, after.Slices, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("miss")))
}

func TestAddExpenseValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tests := []struct {
		name       string
		categoryID string
		cents      int64
		want       error
	}{
		{"zero amount", "food", 0, core.ErrInvalidAmount},
		{"negative amount", "food", -5, core.ErrInvalidAmount},
		{"empty category", "", 100, core.ErrEmptyCategory},
		{"unknown category", "rent", 100, core.ErrUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddExpense(ctx, tt.categoryID, core.Money{Cents: tt.cents}, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, uint64(0), svc.Version())
}

func TestUpdateExpenseKeepsPosition(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	a, err := svc.AddExpense(ctx, "food", core.Money{Cents: 100}, "")
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, "food", core.Money{Cents: 200}, "")
	require.NoError(t, err)

	a.Amount = core.Money{Cents: 900}
	a.CategoryID = "health"
	_, err = svc.UpdateExpense(ctx, a)
	require.NoError(t, err)

	exps, err := svc.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, exps, 2)
	assert.Equal(t, a.ID, exps[0].ID)
	assert.Equal(t, int64(900), exps[0].Amount.Cents)

	_, err = svc.UpdateExpense(ctx, core.Expense{ID: "missing", CategoryID: "food", Amount: core.Money{Cents: 1}})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, WithPublisher(pub))

	c, err := svc.AddCategory(ctx, "  Rent ", namedColor("orange"), "🏠")
	require.NoError(t, err)
	assert.Equal(t, "Rent", c.Name)

	_, err = svc.AddCategory(ctx, "rent", namedColor("red"), "")
	assert.ErrorIs(t, err, core.ErrDuplicateName)

	_, err = svc.AddCategory(ctx, " ", namedColor("red"), "")
	assert.ErrorIs(t, err, core.ErrEmptyName)

	e, err := svc.AddExpense(ctx, c.ID, core.Money{Cents: 50000}, "march")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteCategory(ctx, c.ID), core.ErrCategoryInUse)

	c.Color = namedColor("purple")
	_, err = svc.UpdateCategory(ctx, c)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteExpense(ctx, e.ID))
	require.NoError(t, svc.DeleteCategory(ctx, c.ID))
	assert.ErrorIs(t, svc.DeleteCategory(ctx, c.ID), core.ErrNotFound)

	assert.Equal(t, []string{
		"category:created",
		"expense:created",
		"category:updated",
		"expense:deleted",
		"category:deleted",
	}, pub.kinds())
	assert.Equal(t, uint64(5), svc.Version())
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	reg := metrics.New(prometheus.NewRegistry())
	svc, _ := newTestService(t, WithPublisher(pub), WithMetrics(reg))

	_, err := svc.AddExpense(context.Background(), "food", core.Money{Cents: 100}, "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.EventsPublished.WithLabelValues("error")))
}

func TestSetDarkMode(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	s, err := svc.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, s.DarkMode)

	_, err = svc.SetDarkMode(ctx, true)
	require.NoError(t, err)
	s, err = svc.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, s.DarkMode)
}

func TestReseedBumpsVersion(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Reseed([]core.Category{{ID: "rent", Name: "Rent", Color: namedColor("gray")}})

	assert.Equal(t, uint64(1), svc.Version())
	cats, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rent", cats[len(cats)-1].ID)
}

func TestConcurrentChartRequests(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for i := 0; i < 20; i++ {
		_, err := svc.AddExpense(ctx, "food", core.Money{Cents: int64(100 + i)}, "")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := svc.Chart(ctx, core.GroupByExpense)
			assert.NoError(t, err)
			assert.Len(t, b.Slices, 20)
		}()
	}
	wg.Wait()
}

func TestCloseWithoutResources(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.Close())
}

func namedColor(name string) core.Color {
	c, _ := core.NamedColor(name)
	return c
}

// interleavingStore runs a hook right after selected reads, standing in for
// a concurrent request landing between the service's check and its write.
type interleavingStore struct {
	*memory.Store
	afterGetExpense  func()
	afterGetCategory func()
}

func (s *interleavingStore) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	e, err := s.Store.GetExpense(ctx, id)
	if s.afterGetExpense != nil {
		s.afterGetExpense()
	}
	return e, err
}

func (s *interleavingStore) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := s.Store.GetCategory(ctx, id)
	if s.afterGetCategory != nil {
		s.afterGetCategory()
	}
	return c, err
}

func TestUpdateExpenseDoesNotResurrectDeletedExpense(t *testing.T) {
	ctx := context.Background()
	st := &interleavingStore{Store: memory.New(store.DefaultSeeds())}
	svc := NewLedgerService(st, WithIDGenerator(sequentialIDs()))

	e, err := svc.AddExpense(ctx, "food", core.Money{Cents: 100}, "")
	require.NoError(t, err)

	st.afterGetExpense = func() {
		st.afterGetExpense = nil
		require.NoError(t, st.Store.DeleteExpense(ctx, e.ID))
	}
	e.Amount = core.Money{Cents: 300}
	_, err = svc.UpdateExpense(ctx, e)
	assert.ErrorIs(t, err, core.ErrNotFound)

	exps, err := svc.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, exps)
}

func TestAddExpenseRacingCategoryDelete(t *testing.T) {
	ctx := context.Background()
	st := &interleavingStore{Store: memory.New(store.DefaultSeeds())}
	svc := NewLedgerService(st, WithIDGenerator(sequentialIDs()))

	st.afterGetCategory = func() {
		st.afterGetCategory = nil
		require.NoError(t, st.Store.DeleteCategory(ctx, "health"))
	}
	_, err := svc.AddExpense(ctx, "health", core.Money{Cents: 100}, "")
	assert.ErrorIs(t, err, core.ErrUnknownCategory)

	exps, err := svc.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, exps)
	assert.Equal(t, uint64(0), svc.Version())
}

func TestConcurrentAddCategoryKeepsNamesUnique(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(memory.New(nil))

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddCategory(ctx, "Rent", namedColor("orange"), "")
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, core.ErrDuplicateName)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	cats, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}
