package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensepie/internal/chart"
)

func fixture() ([]Expense, []Category) {
	cats := []Category{
		{ID: "food", Name: "Food", Color: palette["yellow"]},
		{ID: "move", Name: "Transport", Color: palette["blue"], Emoji: "🚌"},
		{ID: "fun", Name: "Entertainment", Color: palette["red"]},
	}
	exps := []Expense{
		{ID: "e1", CategoryID: "move", Amount: Money{Cents: 100}},
		{ID: "e2", CategoryID: "food", Amount: Money{Cents: 100}},
		{ID: "e3", CategoryID: "move", Amount: Money{Cents: 200}},
		{ID: "e4", CategoryID: "gone", Amount: Money{Cents: 999}},
	}
	return exps, cats
}

func TestByExpenseKeepsOrderAndSkipsUnknown(t *testing.T) {
	exps, cats := fixture()
	entries := ByExpense(exps, cats)
	require.Len(t, entries, 3)
	assert.Equal(t, "e1", entries[0].Tag.ExpenseID)
	assert.Equal(t, "🚌 Transport", entries[0].Tag.Label)
	assert.Equal(t, palette["blue"], entries[0].Tag.Color)
	assert.Equal(t, "e2", entries[1].Tag.ExpenseID)
	assert.Equal(t, 2.0, entries[2].Weight)
}

func TestSumByCategoryFollowsCategoryOrder(t *testing.T) {
	exps, cats := fixture()
	sums := SumByCategory(exps, cats)
	require.Len(t, sums, 2)
	assert.Equal(t, "food", sums[0].Category.ID)
	assert.Equal(t, int64(100), sums[0].Amount.Cents)
	assert.Equal(t, "move", sums[1].Category.ID)
	assert.Equal(t, int64(300), sums[1].Amount.Cents)
	assert.Equal(t, 2, sums[1].Count)
}

func TestBuildBreakdown(t *testing.T) {
	exps, cats := fixture()

	b, err := BuildBreakdown(GroupByExpense, exps, cats)
	require.NoError(t, err)
	assert.Equal(t, int64(400), b.Total.Cents)
	require.Len(t, b.Slices, 3)
	assert.Equal(t, chart.Slice[SliceTag]{StartAngle: 0, EndAngle: 90, Tag: b.Slices[0].Tag}, b.Slices[0])
	assert.Equal(t, 180.0, b.Slices[2].StartAngle)
	assert.Equal(t, 360.0, b.Slices[2].EndAngle)

	b, err = BuildBreakdown(GroupByCategory, exps, cats)
	require.NoError(t, err)
	require.Len(t, b.Slices, 2)
	assert.Equal(t, 90.0, b.Slices[0].EndAngle)
	assert.Equal(t, "move", b.Slices[1].Tag.CategoryID)
	assert.Empty(t, b.Slices[1].Tag.ExpenseID)
}

func TestBuildBreakdownEmpty(t *testing.T) {
	b, err := BuildBreakdown(Grouping("bogus"), nil, nil)
	require.NoError(t, err)
	assert.True(t, b.Empty())
	assert.Equal(t, GroupByExpense, b.Grouping)
}

func TestParseGrouping(t *testing.T) {
	assert.Equal(t, GroupByCategory, ParseGrouping("category"))
	assert.Equal(t, GroupByExpense, ParseGrouping(""))
	assert.Equal(t, GroupByExpense, ParseGrouping("nope"))
}
