package gauge

import (
	"math"

	"github.com/xpdeck/xpdeck/internal/canvas"
	"github.com/xpdeck/xpdeck/internal/profile"
)

const keyPadding = 10

// PaintKey draws a touch key: a black face with a white inset border, or
// the inverse when pressed, and the key's label. A nil key draws the empty
// key style. Gauge keys are left alone; their face belongs to Draw.
func PaintKey(c canvas.Canvas, key *profile.Key, pressed bool) {
	if key.IsGauge() {
		return
	}
	bg, fg := background, foreground
	if pressed {
		bg, fg = foreground, background
	}
	w, h := size(c)

	c.SetFillColor(bg)
	c.FillRect(0, 0, w, h)
	c.SetFillColor(fg)
	c.SetLineWidth(2)
	c.SetStrokeColor(fg)
	c.StrokeRect(keyPadding, keyPadding, w-keyPadding*2, h-keyPadding*2)

	if key == nil {
		return
	}
	if key.ColorBG != "" && !pressed {
		c.SetFillColor(key.ColorBG)
		c.FillRect(keyPadding+2, keyPadding+2, w-keyPadding*2-4, h-keyPadding*2-4)
		c.SetFillColor(fg)
	}
	if key.ColorFG != "" && !pressed {
		c.SetFillColor(key.ColorFG)
	}
	label := key.Label
	if pressed {
		label.ColorBG2 = ""
	}
	DrawLabel(c, label)
}

// DrawLabel centres one or two lines of text on the canvas using the
// current fill colour. The second line is 90% of the label size, uses
// ColorFG2 when set and sits on a ColorBG2 band when that is set.
func DrawLabel(c canvas.Canvas, l profile.Label) {
	w, h := size(c)
	px := l.FontSize()

	c.SetFontSize(px)
	m1 := c.MeasureText(l.Text)
	x1 := (w - m1.Width) / 2
	if l.Text2 == "" {
		c.FillText(l.Text, x1, h/2+m1.Height()/2)
		return
	}

	c.SetFontSize(px * 0.9)
	m2 := c.MeasureText(l.Text2)
	h1, h2 := m1.Height(), m2.Height()
	sep := h1
	y1 := h/2 + h1/2 - sep
	x2 := (w - m2.Width) / 2
	y2 := y1 + h1/2 + sep + h2/2

	c.SetFontSize(px)
	c.FillText(l.Text, x1, y1)
	if l.ColorBG2 != "" {
		c.Save()
		c.SetFillColor(l.ColorBG2)
		c.FillRect(x2-4, y2-h2-2, m2.Width+8, h2+4)
		c.Restore()
	}
	if l.ColorFG2 != "" {
		c.SetFillColor(l.ColorFG2)
	}
	c.SetFontSize(px * 0.9)
	c.FillText(l.Text2, x2, y2)
}

// PaintStrip draws a side strip: three stacked knob cells in the page
// accent colour. Highlighted cells are inverted. slots may be shorter than
// three or contain nil entries.
func PaintStrip(c canvas.Canvas, slots []*profile.Key, highlight [profile.SideSlots]bool, accent string) {
	if accent == "" {
		accent = foreground
	}
	w, fullH := size(c)
	h := fullH / profile.SideSlots

	const (
		xPadding = 8
		yPadding = 3
	)

	for i := 0; i < profile.SideSlots; i++ {
		hl := highlight[i]
		yOffset := float64(i) * h
		bg, fg := background, accent
		if hl {
			bg, fg = accent, background
		}

		c.SetFillColor(bg)
		c.FillRect(0, yOffset, w, h)
		c.SetFillColor(fg)
		c.SetLineWidth(2)
		c.SetStrokeColor(fg)
		c.StrokeRect(xPadding, yPadding+yOffset, w-xPadding*2, h-yPadding*2)

		if i >= len(slots) || slots[i] == nil {
			continue
		}
		slot := slots[i]
		if slot.ColorBG != "" {
			c.SetFillColor(slot.ColorBG)
			c.FillRect(xPadding+2, yPadding+yOffset+2, w-xPadding*2-2, h-yPadding*2-2)
		}

		c.SetFontSize(slot.FontSize())
		m := c.MeasureText(slot.Text)
		xAxis := (h - m.Width) / 2
		yAxis := w/2 + m.Height()/2

		// text runs top to bottom along the strip
		c.Rotate(math.Pi / 2)
		switch {
		case hl:
			c.SetFillColor(background)
		case slot.ColorFG != "":
			c.SetFillColor(slot.ColorFG)
		default:
			c.SetFillColor(foreground)
		}
		c.FillText(slot.Text, xAxis+yOffset, -(w - yAxis))
		c.ResetTransform()
	}
}

// Highlight returns a mask with only position i set. An out-of-range i
// yields an empty mask.
func Highlight(i int) [profile.SideSlots]bool {
	var mask [profile.SideSlots]bool
	if i >= 0 && i < profile.SideSlots {
		mask[i] = true
	}
	return mask
}
