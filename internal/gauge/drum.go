package gauge

import (
	"math"

	"github.com/xpdeck/xpdeck/internal/canvas"
	"github.com/xpdeck/xpdeck/internal/mechanical"
	"github.com/xpdeck/xpdeck/internal/profile"
)

const drumBackground = "#555"

// drum describes a mechanical readout on a key.
type drum struct {
	padding     float64
	rightAlign  bool
	windowWidth float64 // width of the large window in digits
	step        int
}

var (
	speedDrum    = drum{padding: 20, rightAlign: true, windowWidth: 1, step: 1}
	altitudeDrum = drum{padding: 10, rightAlign: false, windowWidth: 2, step: 20}
)

func drawSpeed(c canvas.Canvas, values []float64) {
	drawDrumKey(c, speedDrum, sample(values, 0))
}

func drawAltitude(c canvas.Canvas, values []float64) {
	drawDrumKey(c, altitudeDrum, sample(values, 0))
}

func drawDrumKey(c canvas.Canvas, d drum, value float64) {
	w, h := size(c)
	c.SetFillColor(drumBackground)
	c.FillRect(0, 0, w, h)
	c.SetFillColor(foreground)
	c.SetStrokeColor(foreground)
	c.SetLineWidth(1)
	d.render(c, w, h, value)
}

func (d drum) render(c canvas.Canvas, w, h, value float64) {
	c.Save()
	defer c.Restore()

	c.SetFontSize(profile.DefaultLabelSize)
	m := c.MeasureText("x")
	y0 := h/2 + m.Height()/2
	digitHeight := m.Height() * 2
	digitWidth := (m.Right - m.Left) * 1.2

	sign := 1.0
	x := d.padding
	if d.rightAlign {
		sign = -1
		x = w - d.padding
	}

	narrowY := y0 - digitHeight*0.95
	narrowH := digitHeight * 1.25
	shift := d.windowWidth
	if d.rightAlign {
		shift--
	}
	bigX := x + sign*shift*digitWidth
	bigY := y0 - digitHeight*1.5
	bigW := d.windowWidth * digitWidth
	bigH := digitHeight * 2.25

	c.SetStrokeColor(background)
	c.SetFillColor(background)
	c.FillRect(0, narrowY, w, narrowH)
	c.FillRect(bigX, bigY, bigW, bigH)
	c.BeginPath()
	c.Rect(0, narrowY, w, narrowH)
	c.Rect(bigX, bigY, bigW, bigH)
	c.Stroke()
	c.Clip()

	c.SetStrokeColor(foreground)
	c.SetFillColor(foreground)

	if math.IsNaN(value) || math.IsInf(value, 0) {
		c.BeginPath()
		c.MoveTo(0, narrowY)
		c.LineTo(w, narrowY+narrowH)
		c.MoveTo(0, narrowY+narrowH)
		c.LineTo(w, narrowY)
		c.Stroke()
		return
	}

	r := mechanical.Roll(value, d.step)
	n := len(r.Columns)
	for i := 0; i < n; i++ {
		p := n - 1 - i
		if d.rightAlign {
			p = i
		}
		col := r.Columns[p]
		y := y0 + col.Scroll*digitHeight
		if p == 0 {
			c.FillText(col.Above2, x, y-digitHeight*2)
		}
		c.FillText(col.Current, x, y)
		c.FillText(col.Below, x, y+digitHeight)
		c.FillText(col.Below2, x, y+digitHeight*2)
		c.FillText(col.Above, x, y-digitHeight)
		x += sign * digitWidth
	}
}
