package status

import (
	"fmt"
	"math"
)

// RGB is a 24-bit color.
type RGB struct {
	R, G, B uint8
}

var (
	Red    = RGB{R: 0xff}
	Yellow = RGB{R: 0xff, G: 0xff}
	Green  = RGB{G: 0xff}
)

// Int returns the color as 0xRRGGBB.
func (c RGB) Int() int {
	return int(c.R)<<16 | int(c.G)<<8 | int(c.B)
}

func (c RGB) Hex() string {
	return fmt.Sprintf("%02x%02x%02x", c.R, c.G, c.B)
}

type stop struct {
	pos   float64
	color RGB
}

var occupancyStops = []stop{
	{pos: 0, color: Red},
	{pos: 0.5, color: Yellow},
	{pos: 1, color: Green},
}

// ColorAt maps an occupancy ratio to a red -> yellow -> green gradient.
// Ratios outside [0,1] are clamped; NaN is treated as 0.
func ColorAt(ratio float64) RGB {
	ratio = clamp01(ratio)
	for i := 1; i < len(occupancyStops); i++ {
		lo, hi := occupancyStops[i-1], occupancyStops[i]
		if ratio <= hi.pos {
			t := (ratio - lo.pos) / (hi.pos - lo.pos)
			return RGB{
				R: lerp(lo.color.R, hi.color.R, t),
				G: lerp(lo.color.G, hi.color.G, t),
				B: lerp(lo.color.B, hi.color.B, t),
			}
		}
	}
	return occupancyStops[len(occupancyStops)-1].color
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
