// Package mechanical computes the layout of an odometer style readout.
//
// A mechanical display shows a number on rotating drums. When the value
// sits between two readings the least significant drum is part way through
// its roll, and every higher drum whose lower neighbour is about to wrap
// rolls along with it. Roll returns, for each drum, the digit it shows, how
// far it has scrolled towards the next digit and the glyphs printed around
// it so a renderer can paint a continuous strip.
//
// The least significant drum may count in steps larger than one. An
// altimeter typically uses a two digit drum stepping by 20 feet:
//
//	r := mechanical.Roll(1990, 20)
//	// r.Columns[0]: "80" scrolling half way to "00"
//	// r.Columns[1]: 9, also half way, carrying into
//	// r.Columns[2]: 1
package mechanical

import (
	"math"
	"strconv"
)

// Column is one drum of the readout.
type Column struct {
	// Digit is the drum position. For the low group it counts steps, so a
	// step of 20 showing "40" has Digit 2.
	Digit int
	// Scroll is the fraction, rounded to hundredths, by which the drum has
	// advanced towards the next value.
	Scroll float64

	// Glyphs printed on the drum: the current value, the two values below
	// and the value above. Above2 is only set for the low group, whose
	// window is taller.
	Current string
	Below   string
	Below2  string
	Above   string
	Above2  string
}

// Reading is the output of Roll. Columns are ordered least significant
// first.
type Reading struct {
	Columns []Column
	// Step is the increment of the low group.
	Step int
	// LowDigits is the number of decimal digits the low group spans.
	LowDigits int
	// Low10 is 10^LowDigits.
	Low10 int
}

// Roll lays out value on drums whose lowest group counts in units of step.
// Negative and non-finite values are treated as zero and a step below one
// is treated as one.
func Roll(value float64, step int) Reading {
	if step < 1 {
		step = 1
	}
	if !(value > 0) || math.IsInf(value, 0) {
		value = 0
	}

	// decimal digits of step, floor(log10(step))+1 without float error
	lowDigits := len(strconv.Itoa(step))
	low10 := pow10(lowDigits)
	// drum position just before the low group wraps
	lowMax := float64(low10-step) / float64(step)

	low := math.Mod(value, float64(low10)) / float64(step)
	d0 := math.Trunc(low)
	digits := []int{int(d0)}
	scrolls := []float64{round2(low - d0)}

	v := value / float64(low10)
	for i := 0; ; i++ {
		boundary := 9.0
		if i == 0 {
			boundary = lowMax
		}
		if float64(digits[i]) == boundary && scrolls[i] > 0 {
			scrolls = append(scrolls, scrolls[i])
		} else {
			if v < 1 {
				break
			}
			scrolls = append(scrolls, 0)
		}
		digits = append(digits, int(math.Trunc(math.Mod(v, 10))))
		v /= 10
	}

	r := Reading{
		Columns:   make([]Column, len(digits)),
		Step:      step,
		LowDigits: lowDigits,
		Low10:     low10,
	}
	for i, d := range digits {
		c := Column{Digit: d, Scroll: scrolls[i]}
		if i == 0 {
			r.lowGlyphs(&c)
		} else {
			digitGlyphs(&c)
		}
		r.Columns[i] = c
	}
	return r
}

func (r Reading) lowGlyphs(c *Column) {
	wrap := func(x int) int {
		for x >= r.Low10 {
			x -= r.Low10
		}
		for x < 0 {
			x += r.Low10
		}
		return x
	}
	d := c.Digit * r.Step
	below := wrap(d - r.Step)
	below2 := wrap(below - r.Step)
	above := wrap(d + r.Step)
	above2 := wrap(above + r.Step)

	c.Current = r.pad(d)
	c.Below = r.pad(below)
	c.Below2 = r.pad(below2)
	c.Above = r.pad(above)
	c.Above2 = r.pad(above2)
}

func (r Reading) pad(x int) string {
	s := strconv.Itoa(x)
	for len(s) < r.LowDigits {
		s = "0" + s
	}
	return s
}

func digitGlyphs(c *Column) {
	below := (c.Digit + 9) % 10
	c.Current = strconv.Itoa(c.Digit)
	c.Below = strconv.Itoa(below)
	c.Below2 = strconv.Itoa((below + 9) % 10)
	c.Above = strconv.Itoa((c.Digit + 1) % 10)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func pow10(n int) int {
	p := 1
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}
