package value

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// ---------------------------------------------------------------------------
// ColorData: RGB(A) colors with HSL/HSV construction
// ---------------------------------------------------------------------------

// ColorData is the payload of a Color value. The channel values live
// in a colorful.Color so color-space math stays in one place.
type ColorData struct {
	C     colorful.Color
	Alpha float64 // 0..1
}

// NewColorRGB builds an opaque color from 0..255 channel values.
func NewColorRGB(r, g, b int64) Value {
	return Value{Kind: Color, Col: &ColorData{
		C:     colorful.Color{R: clamp01(float64(r) / 255), G: clamp01(float64(g) / 255), B: clamp01(float64(b) / 255)},
		Alpha: 1,
	}}
}

// NewColorRGBA builds a color with an explicit 0..255 alpha channel.
func NewColorRGBA(r, g, b, a int64) Value {
	v := NewColorRGB(r, g, b)
	v.Col.Alpha = clamp01(float64(a) / 255)
	return v
}

// NewColorHSL builds a color from hue (degrees), saturation, and
// lightness (0..1 or 0..100 scaled by the caller).
func NewColorHSL(h, s, l float64) Value {
	return Value{Kind: Color, Col: &ColorData{C: colorful.Hsl(h, s, l), Alpha: 1}}
}

// NewColorHSV builds a color from hue (degrees), saturation, and value.
func NewColorHSV(h, s, v float64) Value {
	return Value{Kind: Color, Col: &ColorData{C: colorful.Hsv(h, s, v), Alpha: 1}}
}

// Hex returns the #rrggbb form (plus alpha byte when not opaque).
func (c *ColorData) Hex() string {
	if c.Alpha < 1 {
		r, g, b := c.C.RGB255()
		return fmt.Sprintf("#%02x%02x%02x%02x", r, g, b, uint8(c.Alpha*255+0.5))
	}
	return c.C.Hex()
}

// RGB255 returns the 0..255 channel triple.
func (c *ColorData) RGB255() (uint8, uint8, uint8) { return c.C.RGB255() }

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
