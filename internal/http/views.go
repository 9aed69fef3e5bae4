package http

import (
	"html/template"
	"strconv"

	"expensepie/internal/chart"
	"expensepie/internal/core"
)

// Pie geometry in SVG user units.
const (
	chartSize   = 240.0
	chartRadius = 110.0
)

type sliceView struct {
	Path       string
	Fill       string
	Swatch     template.CSS
	Label      string
	Amount     string
	Share      string
	CategoryID string
	ExpenseID  string
}

type chartView struct {
	Grouping string
	Total    string
	Empty    bool
	Size     float64
	Center   float64
	Radius   float64
	Slices   []sliceView
}

func newChartView(b core.Breakdown) chartView {
	v := chartView{
		Grouping: string(b.Grouping),
		Total:    formatEuros(b.Total.Cents),
		Empty:    b.Empty(),
		Size:     chartSize,
		Center:   chartSize / 2,
		Radius:   chartRadius,
		Slices:   make([]sliceView, 0, len(b.Slices)),
	}
	for _, s := range b.Slices {
		v.Slices = append(v.Slices, sliceView{
			Path:       chart.ArcPath(s, v.Center, v.Center, v.Radius),
			Fill:       s.Tag.Color.CSS(),
			Swatch:     swatch(s.Tag.Color),
			Label:      s.Tag.Label,
			Amount:     formatEuros(s.Tag.Amount.Cents),
			Share:      formatPercent(s.Share()),
			CategoryID: s.Tag.CategoryID,
			ExpenseID:  s.Tag.ExpenseID,
		})
	}
	return v
}

// swatch is built from numeric channels only, so it is safe as CSS.
func swatch(c core.Color) template.CSS {
	return template.CSS("background-color: " + c.CSS())
}

type categoryView struct {
	ID        string
	Name      string
	Emoji     string
	Label     string
	Hex       string
	ColorName string
	Opacity   string
	Swatch    template.CSS
}

func newCategoryViews(cats []core.Category) []categoryView {
	out := make([]categoryView, len(cats))
	for i, c := range cats {
		out[i] = categoryView{
			ID:        c.ID,
			Name:      c.Name,
			Emoji:     c.Emoji,
			Label:     c.Label(),
			Hex:       c.Color.Hex(),
			ColorName: c.Color.WithOpacity(1).Name(),
			Opacity:   strconv.FormatFloat(c.Color.Opacity(), 'f', 2, 64),
			Swatch:    swatch(c.Color),
		}
	}
	return out
}

type expenseView struct {
	ID          string
	CategoryID  string
	Category    string
	Amount      string
	AmountInput string
	Detail      string
	Swatch      template.CSS
}

func newExpenseViews(exps []core.Expense, cats []core.Category) []expenseView {
	byID := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	out := make([]expenseView, len(exps))
	for i, e := range exps {
		v := expenseView{
			ID:          e.ID,
			CategoryID:  e.CategoryID,
			Category:    e.CategoryID,
			Amount:      formatEuros(e.Amount.Cents),
			AmountInput: e.Amount.String(),
			Detail:      e.Detail,
		}
		if c, ok := byID[e.CategoryID]; ok {
			v.Category = c.Label()
			v.Swatch = swatch(c.Color)
		}
		out[i] = v
	}
	return out
}

type pageData struct {
	Chart      chartView
	Categories []categoryView
	Expenses   []expenseView
	Colors     []string
	DarkMode   bool
}
