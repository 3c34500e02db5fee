// Package gauge paints keys, side strips and instrument gauges.
//
// Draw renders a gauge key from its DisplaySpec and the latest samples.
// Dispatch is an exhaustive switch over profile.GaugeType; a key whose type
// was not recognised when the profile was loaded draws nothing.
//
// Every value shown as text goes through format.Value: a non-finite sample
// prints the sentinel "X", a configured formatter prints its output and
// anything else prints as a rounded integer.
package gauge

import (
	"math"

	"github.com/xpdeck/xpdeck/internal/canvas"
	"github.com/xpdeck/xpdeck/internal/format"
	"github.com/xpdeck/xpdeck/internal/profile"
)

const (
	background = "black"
	foreground = "white"
)

// Draw paints a gauge. values holds one sample per source; missing
// entries are treated as no sample.
func Draw(c canvas.Canvas, d *profile.DisplaySpec, values []float64) {
	if d == nil {
		return
	}
	switch d.Type {
	case profile.GaugeMeter:
		drawMeter(c, d, values)
	case profile.GaugeText:
		drawText(c, d, values)
	case profile.GaugeAttitude:
		drawAttitude(c, values)
	case profile.GaugeSpeed:
		drawSpeed(c, values)
	case profile.GaugeAltitude:
		drawAltitude(c, values)
	case profile.GaugeUnknown:
	}
}

// Placeholder returns a values slice of n samples, all NaN.
func Placeholder(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

func sample(values []float64, i int) float64 {
	if i < 0 || i >= len(values) {
		return math.NaN()
	}
	return values[i]
}

// MeterReading maps v onto [lo, hi] as a fraction. A non-finite result
// parks the needle at the start of the scale.
func MeterReading(lo, hi, v float64) float64 {
	r := (v - lo) / (hi - lo)
	if !format.IsFinite(r) {
		return 0
	}
	return r
}

// NeedleAngle returns the needle direction in radians for a reading. The
// scale runs clockwise from π (left) to 2π (right).
func NeedleAngle(reading float64) float64 {
	return math.Pi * (1 + reading)
}

func drawMeter(c canvas.Canvas, d *profile.DisplaySpec, values []float64) {
	if d.Min == nil || d.Max == nil {
		return
	}
	lo, hi := *d.Min, *d.Max
	value := sample(values, 0)
	reading := MeterReading(lo, hi, value)
	text := format.Value(d.Formatter, value)

	w, h := size(c)
	c.SetFillColor(background)
	c.FillRect(0, 0, w, h)
	c.SetStrokeColor(foreground)
	c.SetLineWidth(1)

	const (
		outer = 40.0
		width = 5.0
		inner = outer - width
	)
	x0, y0 := w/2, h/2+5

	for _, stop := range d.Stops {
		theta0 := NeedleAngle(MeterReading(lo, hi, stop.ValueBegin)) + 0.05
		theta1 := NeedleAngle(MeterReading(lo, hi, stop.ValueEnd))

		c.BeginPath()
		c.SetLineWidth(width)
		c.SetStrokeColor(stop.Color)
		c.Arc(x0, y0, outer-width/2, theta0, theta1)
		c.Stroke()

		// tick at the end of the band
		c.BeginPath()
		c.SetLineWidth(2)
		cos, sin := math.Cos(theta1), math.Sin(theta1)
		c.MoveTo(x0+cos*(inner-2), y0+sin*(inner-2))
		c.LineTo(x0+cos*(outer+2), y0+sin*(outer+2))
		c.Stroke()
	}

	c.SetStrokeColor(foreground)
	c.SetLineWidth(2)
	c.BeginPath()
	c.MoveTo(x0, y0)
	theta := NeedleAngle(reading)
	c.LineTo(x0+math.Cos(theta)*inner, y0+math.Sin(theta)*inner)
	c.Stroke()

	c.SetFontSize(d.FontSize() * 0.9)
	c.SetFillColor(foreground)
	m := c.MeasureText(text)
	c.FillText(text, (w-m.Width)/2, h/2+25)
}

func drawText(c canvas.Canvas, d *profile.DisplaySpec, values []float64) {
	w, h := size(c)
	c.SetFillColor(background)
	c.FillRect(0, 0, w, h)
	c.SetFillColor(foreground)
	c.SetStrokeColor(foreground)
	c.SetLineWidth(1)

	label := profile.Label{
		Text:     format.Value(d.Formatter, sample(values, 0)),
		Size:     d.FontSize(),
		ColorFG2: d.ColorFG2,
	}
	if d.Tag != nil {
		label.Text2 = *d.Tag
	} else {
		second := d.Formatter2
		if second == nil {
			second = d.Formatter
		}
		label.Text2 = format.Value(second, sample(values, 1))
	}
	DrawLabel(c, label)
}

func drawAttitude(c canvas.Canvas, values []float64) {
	pitch, roll := sample(values, 0), sample(values, 1)
	valid := format.IsFinite(pitch) && format.IsFinite(roll)
	if !valid {
		pitch, roll = 0, 0
	}

	w, h := size(c)
	c.SetFillColor(background)
	c.FillRect(0, 0, w, h)

	x0, y0 := w/2, h/2
	const (
		longSep   = 18.0
		shortSep  = longSep / 2
		longMark  = 10.0
		shortMark = 5.0
	)

	c.Translate(x0, y0)
	c.Rotate(-roll * math.Pi / 180)
	c.Translate(0, pitch/10*longSep)
	c.SetFillColor("#0077b6")
	c.FillRect(-w, -2*h, 2*w, 4*h)
	c.SetFillColor("#99582a")
	c.FillRect(-w, 0, 2*w, 4*h)

	c.SetLineWidth(1)
	c.SetStrokeColor(foreground)
	c.BeginPath()
	c.MoveTo(-0.75*w, 0)
	c.LineTo(0.75*w, 0)

	c.SetFillColor(foreground)
	c.SetFontSize(10)
	for i := -6; i <= 6; i++ {
		if i == 0 {
			continue
		}
		y := longSep * float64(i)
		sign := 1.0
		if i < 0 {
			sign = -1
		}
		c.FillText(format.Integer(sign*float64(i)*10), -longMark-15, y+3)
		c.MoveTo(-longMark, y)
		c.LineTo(longMark, y)
		c.MoveTo(-shortMark, y-sign*shortSep)
		c.LineTo(shortMark, y-sign*shortSep)
	}
	c.Stroke()
	c.ResetTransform()

	// fixed aircraft symbol
	c.SetLineWidth(2)
	c.SetStrokeColor("yellow")
	for _, side := range []float64{-1, 1} {
		c.BeginPath()
		c.MoveTo(x0+side*30, y0)
		c.LineTo(x0+side*10, y0)
		c.LineTo(x0+side*10, y0+8)
		c.Stroke()
	}

	if !valid {
		c.SetFontSize(profile.DefaultLabelSize)
		c.SetFillColor(foreground)
		m := c.MeasureText(format.Sentinel)
		c.FillText(format.Sentinel, (w-m.Width)/2, y0-10)
	}
}

func size(c canvas.Canvas) (float64, float64) {
	w, h := c.Size()
	return float64(w), float64(h)
}
