package core

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Color is a plain RGBA value; A is the alpha channel (255 = opaque).
type Color struct {
	R, G, B, A uint8
}

// palette maps the names users can type in the category form.
var palette = map[string]Color{
	"red":    {R: 0xFF, G: 0x3B, B: 0x30, A: 0xFF},
	"green":  {R: 0x34, G: 0xC7, B: 0x59, A: 0xFF},
	"blue":   {R: 0x00, G: 0x7A, B: 0xFF, A: 0xFF},
	"yellow": {R: 0xFF, G: 0xCC, B: 0x00, A: 0xFF},
	"orange": {R: 0xFF, G: 0x95, B: 0x00, A: 0xFF},
	"pink":   {R: 0xFF, G: 0x2D, B: 0x55, A: 0xFF},
	"purple": {R: 0xAF, G: 0x52, B: 0xDE, A: 0xFF},
	"brown":  {R: 0xA2, G: 0x84, B: 0x5E, A: 0xFF},
	"gray":   {R: 0x8E, G: 0x8E, B: 0x93, A: 0xFF},
	"black":  {R: 0x00, G: 0x00, B: 0x00, A: 0xFF},
	"white":  {R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
	"clear":  {},
}

// ColorNames returns the known color names in alphabetical order.
func ColorNames() []string {
	names := make([]string, 0, len(palette))
	for name := range palette {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamedColor looks up a palette color, ignoring case and surrounding spaces.
func NamedColor(name string) (Color, bool) {
	c, ok := palette[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// ParseColor accepts a palette name or a hex value (#rgb, #rrggbb, #rrggbbaa).
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if c, ok := NamedColor(s); ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		return Color{}, fmt.Errorf("%w: %q", ErrUnknownColor, s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return Color{}, fmt.Errorf("%w: %q", ErrUnknownColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrUnknownColor, s)
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// WithOpacity returns the color with alpha set to f (clamped to [0,1]).
// NaN leaves the color unchanged.
func (c Color) WithOpacity(f float64) Color {
	if math.IsNaN(f) {
		return c
	}
	f = math.Max(0, math.Min(1, f))
	c.A = uint8(math.Round(f * 255))
	return c
}

// Opacity returns the alpha channel as a fraction.
func (c Color) Opacity() float64 {
	return float64(c.A) / 255
}

// Hex returns #rrggbb, or #rrggbbaa when the color is not fully opaque.
func (c Color) Hex() string {
	if c.A == 0xFF {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// CSS returns an rgba() expression usable in style attributes and SVG fills.
func (c Color) CSS() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(c.Opacity(), 'f', 3, 64))
}

// Name returns the palette name for c, or its hex form.
func (c Color) Name() string {
	for name, pc := range palette {
		if pc == c {
			return name
		}
	}
	return c.Hex()
}
