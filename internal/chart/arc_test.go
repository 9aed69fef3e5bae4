package chart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArcPathQuarter(t *testing.T) {
	got := ArcPath(Slice[string]{StartAngle: 0, EndAngle: 90}, 100, 100, 50)
	assert.Equal(t, "M 100.000 100.000 L 150.000 100.000 A 50.000 50.000 0 0 1 100.000 150.000 Z", got)
}

func TestArcPathLargeArcFlag(t *testing.T) {
	got := ArcPath(Slice[string]{StartAngle: 0, EndAngle: 270}, 0, 0, 10)
	assert.Contains(t, got, " 0 1 1 ")
}

func TestArcPathFullCircle(t *testing.T) {
	got := ArcPath(Slice[string]{StartAngle: 0, EndAngle: 360}, 100, 100, 50)
	assert.Equal(t, 2, strings.Count(got, " A "))
	assert.True(t, strings.HasPrefix(got, "M 50.000 100.000"))
}

func TestArcPathEmptySweep(t *testing.T) {
	assert.Empty(t, ArcPath(Slice[string]{StartAngle: 45, EndAngle: 45}, 0, 0, 10))
}
