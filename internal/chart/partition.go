// Package chart turns weighted entries into pie-chart geometry.
//
// Partition is a pure function: it keeps no state between calls and only
// allocates its own output, so it is safe to call concurrently.
package chart

import (
	"errors"
	"fmt"
	"math"
)

// FullCircle is the sweep, in degrees, covered by a complete partition.
const FullCircle = 360.0

// Tolerance is the accepted floating-point drift on the closing angle.
const Tolerance = 1e-6

// ErrInvalidWeight is returned when an entry carries a negative or non-finite weight.
var ErrInvalidWeight = errors.New("invalid weight")

type (
	// WeightedEntry is one input record: a non-negative magnitude and an
	// opaque tag that is copied verbatim to the resulting slice.
	WeightedEntry[T any] struct {
		Weight float64
		Tag    T
	}

	// Slice is the angular extent assigned to one entry, in degrees.
	Slice[T any] struct {
		StartAngle float64
		EndAngle   float64
		Tag        T
	}
)

// Sweep returns the angular width of the slice.
func (s Slice[T]) Sweep() float64 {
	return s.EndAngle - s.StartAngle
}

// Share returns the fraction of the circle covered by the slice.
func (s Slice[T]) Share() float64 {
	return s.Sweep() / FullCircle
}

// Partition splits the full circle into contiguous slices proportional to
// each entry's weight, in input order.
//
// An empty input, or one whose weights are all zero, yields no slices and no
// error. A negative, NaN or infinite weight fails the whole call with
// ErrInvalidWeight before anything is computed.
func Partition[T any](entries []WeightedEntry[T]) ([]Slice[T], error) {
	var total float64
	for i, e := range entries {
		if e.Weight < 0 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
			return nil, fmt.Errorf("%w: entry %d has weight %v", ErrInvalidWeight, i, e.Weight)
		}
		total += e.Weight
	}
	if math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: total weight overflows", ErrInvalidWeight)
	}
	if total == 0 {
		return []Slice[T]{}, nil
	}

	slices := make([]Slice[T], len(entries))
	cursor := 0.0
	for i, e := range entries {
		sweep := FullCircle * (e.Weight / total)
		slices[i] = Slice[T]{StartAngle: cursor, EndAngle: cursor + sweep, Tag: e.Tag}
		cursor += sweep
	}

	closeCircle(slices, cursor)
	return slices, nil
}

// closeCircle pins the last slice to FullCircle when the accumulated cursor
// drifted beyond Tolerance. Within tolerance the slices are left as computed.
func closeCircle[T any](slices []Slice[T], cursor float64) {
	if len(slices) == 0 || math.Abs(cursor-FullCircle) <= Tolerance {
		return
	}
	slices[len(slices)-1].EndAngle = FullCircle
}
