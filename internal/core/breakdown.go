package core

import "expensepie/internal/chart"

// Grouping selects how expenses become chart entries.
type Grouping string

const (
	// GroupByExpense draws one slice per expense, in insertion order.
	GroupByExpense Grouping = "expense"
	// GroupByCategory draws one slice per category with its summed amount.
	GroupByCategory Grouping = "category"
)

// ParseGrouping maps a query value to a Grouping, defaulting to GroupByExpense.
func ParseGrouping(s string) Grouping {
	if Grouping(s) == GroupByCategory {
		return GroupByCategory
	}
	return GroupByExpense
}

// SliceTag is what the renderer needs to draw and label a slice.
type SliceTag struct {
	CategoryID string
	Label      string
	Color      Color
	ExpenseID  string // Empty when grouped by category
	Amount     Money
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
	Count    int
}

// Breakdown is the computed pie chart for a ledger snapshot.
type Breakdown struct {
	Grouping Grouping
	Total    Money
	Slices   []chart.Slice[SliceTag]
}

// Empty reports whether there is nothing to draw.
func (b Breakdown) Empty() bool {
	return len(b.Slices) == 0
}

// ByExpense returns one weighted entry per expense, colored by its category.
// Expenses whose category is unknown are skipped.
func ByExpense(expenses []Expense, categories []Category) []chart.WeightedEntry[SliceTag] {
	byID := indexCategories(categories)
	out := make([]chart.WeightedEntry[SliceTag], 0, len(expenses))
	for _, e := range expenses {
		c, ok := byID[e.CategoryID]
		if !ok {
			continue
		}
		out = append(out, chart.WeightedEntry[SliceTag]{
			Weight: e.Amount.Units(),
			Tag: SliceTag{
				CategoryID: c.ID,
				Label:      c.Label(),
				Color:      c.Color,
				ExpenseID:  e.ID,
				Amount:     e.Amount,
			},
		})
	}
	return out
}

// SumByCategory aggregates expenses per category, in category order.
// Categories without expenses are omitted.
func SumByCategory(expenses []Expense, categories []Category) []CategoryAmount {
	sums := make(map[string]*CategoryAmount, len(categories))
	for _, c := range categories {
		sums[c.ID] = &CategoryAmount{Category: c}
	}
	for _, e := range expenses {
		if ca, ok := sums[e.CategoryID]; ok {
			ca.Amount.Cents += e.Amount.Cents
			ca.Count++
		}
	}
	out := make([]CategoryAmount, 0, len(categories))
	for _, c := range categories {
		if ca := sums[c.ID]; ca.Count > 0 {
			out = append(out, *ca)
		}
	}
	return out
}

// ByCategory returns one weighted entry per category that has expenses.
func ByCategory(expenses []Expense, categories []Category) []chart.WeightedEntry[SliceTag] {
	sums := SumByCategory(expenses, categories)
	out := make([]chart.WeightedEntry[SliceTag], 0, len(sums))
	for _, ca := range sums {
		out = append(out, chart.WeightedEntry[SliceTag]{
			Weight: ca.Amount.Units(),
			Tag: SliceTag{
				CategoryID: ca.Category.ID,
				Label:      ca.Category.Label(),
				Color:      ca.Category.Color,
				Amount:     ca.Amount,
			},
		})
	}
	return out
}

// BuildBreakdown partitions the snapshot according to g.
func BuildBreakdown(g Grouping, expenses []Expense, categories []Category) (Breakdown, error) {
	var entries []chart.WeightedEntry[SliceTag]
	switch g {
	case GroupByCategory:
		entries = ByCategory(expenses, categories)
	default:
		g = GroupByExpense
		entries = ByExpense(expenses, categories)
	}

	slices, err := chart.Partition(entries)
	if err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{Grouping: g, Slices: slices}
	for _, e := range entries {
		b.Total.Cents += e.Tag.Amount.Cents
	}
	return b, nil
}

func indexCategories(categories []Category) map[string]Category {
	byID := make(map[string]Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return byID
}
