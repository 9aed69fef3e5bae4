package chart

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(weights ...float64) []WeightedEntry[int] {
	out := make([]WeightedEntry[int], len(weights))
	for i, w := range weights {
		out[i] = WeightedEntry[int]{Weight: w, Tag: i}
	}
	return out
}

func TestPartitionEmpty(t *testing.T) {
	got, err := Partition[string](nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Partition([]WeightedEntry[string]{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPartitionAllZero(t *testing.T) {
	got, err := Partition([]WeightedEntry[string]{{Weight: 0, Tag: "A"}, {Weight: 0, Tag: "B"}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPartitionExample(t *testing.T) {
	got, err := Partition([]WeightedEntry[string]{
		{Weight: 1, Tag: "A"},
		{Weight: 1, Tag: "B"},
		{Weight: 2, Tag: "C"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Slice[string]{
		{StartAngle: 0, EndAngle: 90, Tag: "A"},
		{StartAngle: 90, EndAngle: 180, Tag: "B"},
		{StartAngle: 180, EndAngle: 360, Tag: "C"},
	}, got)
}

func TestPartitionRejectsInvalidWeights(t *testing.T) {
	cases := []struct {
		name    string
		weights []float64
	}{
		{"negative", []float64{-1}},
		{"negative after valid", []float64{3, 2, -0.5}},
		{"nan", []float64{1, math.NaN()}},
		{"inf", []float64{math.Inf(1)}},
		{"overflowing total", []float64{math.MaxFloat64, math.MaxFloat64}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Partition(entries(tc.weights...))
			require.ErrorIs(t, err, ErrInvalidWeight)
			assert.Nil(t, got)
		})
	}
}

func TestPartitionInvariants(t *testing.T) {
	inputs := [][]float64{
		{5},
		{1, 2, 3, 4, 5},
		{0.1, 0.2, 0.3},
		{0, 7, 0, 3},
		{1e-9, 1e9},
	}
	// Many small uneven weights still close within tolerance.
	many := make([]float64, 10000)
	for i := range many {
		many[i] = float64(i%7) + 0.013*float64(i%11)
	}
	inputs = append(inputs, many)

	for _, weights := range inputs {
		got, err := Partition(entries(weights...))
		require.NoError(t, err)
		require.Len(t, got, len(weights))

		assert.Equal(t, 0.0, got[0].StartAngle)
		assert.InDelta(t, FullCircle, got[len(got)-1].EndAngle, Tolerance)

		var total, sum float64
		for _, w := range weights {
			total += w
		}
		for i, s := range got {
			assert.Equal(t, i, s.Tag, "order must follow input")
			assert.GreaterOrEqual(t, s.EndAngle, s.StartAngle)
			if i > 0 {
				assert.Equal(t, got[i-1].EndAngle, s.StartAngle, "slices %d and %d must touch", i-1, i)
			}
			if i < len(got)-1 {
				assert.InDelta(t, FullCircle*weights[i]/total, s.Sweep(), 1e-9)
			}
			sum += s.Sweep()
		}
		assert.InDelta(t, FullCircle, sum, Tolerance)
	}
}

func TestPartitionIsDeterministic(t *testing.T) {
	in := entries(3.3, 1.1, 7.7, 0.01, 42)
	first, err := Partition(in)
	require.NoError(t, err)
	second, err := Partition(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPartitionDoesNotSortByWeight(t *testing.T) {
	got, err := Partition(entries(1, 10, 2))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, []int{got[0].Tag, got[1].Tag, got[2].Tag})
	assert.Greater(t, got[1].Sweep(), got[2].Sweep())
}

func TestSliceShare(t *testing.T) {
	s := Slice[string]{StartAngle: 90, EndAngle: 180}
	assert.InDelta(t, 0.25, s.Share(), 1e-12)
}

func TestCloseCircle(t *testing.T) {
	t.Run("drift beyond tolerance is clamped", func(t *testing.T) {
		slices := []Slice[int]{{0, 120, 0}, {120, 359.99, 1}}
		closeCircle(slices, 359.99)
		assert.Equal(t, 120.0, slices[1].StartAngle)
		assert.Equal(t, FullCircle, slices[1].EndAngle)
		assert.Equal(t, 120.0, slices[0].EndAngle)
	})

	t.Run("drift within tolerance is kept", func(t *testing.T) {
		end := FullCircle - Tolerance/2
		slices := []Slice[int]{{0, 180, 0}, {180, end, 1}}
		closeCircle(slices, end)
		assert.Equal(t, end, slices[1].EndAngle)
	})

	t.Run("overshoot is clamped", func(t *testing.T) {
		slices := []Slice[int]{{0, 360.5, 0}}
		closeCircle(slices, 360.5)
		assert.Equal(t, FullCircle, slices[0].EndAngle)
	})

	t.Run("no slices", func(t *testing.T) {
		assert.NotPanics(t, func() { closeCircle[int](nil, 0) })
	})
}
