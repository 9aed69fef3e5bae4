package chart

import (
	"math"
	"strconv"
	"strings"
)

// ArcPath returns the SVG path data for a filled wedge centred on (cx, cy).
//
// Angles grow clockwise from the positive x axis, matching the SVG coordinate
// system where y points down. A slice covering the whole circle is drawn as
// two half arcs since a single arc with coincident endpoints renders nothing.
func ArcPath[T any](s Slice[T], cx, cy, r float64) string {
	sweep := s.Sweep()
	if sweep <= 0 {
		return ""
	}
	if sweep >= FullCircle-Tolerance {
		var b strings.Builder
		b.WriteString("M " + fmtCoord(cx-r) + " " + fmtCoord(cy))
		b.WriteString(" A " + fmtCoord(r) + " " + fmtCoord(r) + " 0 1 1 " + fmtCoord(cx+r) + " " + fmtCoord(cy))
		b.WriteString(" A " + fmtCoord(r) + " " + fmtCoord(r) + " 0 1 1 " + fmtCoord(cx-r) + " " + fmtCoord(cy))
		b.WriteString(" Z")
		return b.String()
	}

	x0, y0 := PointAt(cx, cy, r, s.StartAngle)
	x1, y1 := PointAt(cx, cy, r, s.EndAngle)
	largeArc := "0"
	if sweep > 180 {
		largeArc = "1"
	}

	var b strings.Builder
	b.WriteString("M " + fmtCoord(cx) + " " + fmtCoord(cy))
	b.WriteString(" L " + fmtCoord(x0) + " " + fmtCoord(y0))
	b.WriteString(" A " + fmtCoord(r) + " " + fmtCoord(r) + " 0 " + largeArc + " 1 " + fmtCoord(x1) + " " + fmtCoord(y1))
	b.WriteString(" Z")
	return b.String()
}

// PointAt returns the point on the circle at the given angle in degrees.
func PointAt(cx, cy, r, degrees float64) (float64, float64) {
	rad := degrees * math.Pi / 180
	return cx + r*math.Cos(rad), cy + r*math.Sin(rad)
}

func fmtCoord(v float64) string {
	// Avoid "-0" in the output.
	if math.Abs(v) < 1e-9 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}
