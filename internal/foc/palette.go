package foc

import (
	"image/color"
	"math"
)

// Palette returns n colours spread evenly over the rainbow colour map,
// violet through red. A single colour is taken from the violet end.
func Palette(n int) []color.NRGBA {
	if n <= 0 {
		return nil
	}
	cols := make([]color.NRGBA, n)
	for i := range cols {
		x := 0.0
		if n > 1 {
			x = float64(i) / float64(n-1)
		}
		cols[i] = rainbow(x)
	}
	return cols
}

func rainbow(x float64) color.NRGBA {
	r := math.Abs(2*x - 0.5)
	g := math.Sin(math.Pi * x)
	b := math.Cos(math.Pi * x / 2)
	return color.NRGBA{R: channel(r), G: channel(g), B: channel(b), A: 0xff}
}

func channel(v float64) uint8 {
	v = math.Max(0, math.Min(1, v))
	return uint8(math.Round(v * 255))
}

// withAlpha returns c at opacity a in [0,1].
func withAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = channel(a)
	return c
}
