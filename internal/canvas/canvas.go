// Package canvas defines the drawing surface that key and gauge painters
// render into.
//
// The surface follows the familiar immediate-mode 2D canvas model: a fill
// and stroke colour, a line width, a font size, a current path and an
// affine transform with a save/restore stack. Colours are CSS style
// strings ("white", "#0077b6", "#555").
//
// Two implementations exist: raster.Surface paints real pixels for the
// device, and Recorder captures the calls for tests.
package canvas

// TextMetrics describes the extent of a string in the current font.
// Ascent and Descent are measured from the baseline; Left and Right from
// the text origin, matching actualBoundingBox* of an HTML canvas.
type TextMetrics struct {
	Width   float64
	Ascent  float64
	Descent float64
	Left    float64
	Right   float64
}

// Height returns Ascent - Descent, the vertical offset that centres a line
// of text on a point.
func (m TextMetrics) Height() float64 {
	return m.Ascent - m.Descent
}

// Canvas is a 2D drawing surface of fixed pixel size.
type Canvas interface {
	// Size returns the surface dimensions in pixels.
	Size() (width, height int)

	SetFillColor(color string)
	SetStrokeColor(color string)
	SetLineWidth(width float64)
	SetFontSize(px float64)

	FillRect(x, y, w, h float64)
	StrokeRect(x, y, w, h float64)

	// Path construction. Arc angles are in radians, clockwise in screen
	// space, from start to end.
	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Arc(x, y, radius, start, end float64)
	Rect(x, y, w, h float64)
	Stroke()
	// Clip intersects the clip region with the rectangles added by Rect
	// since the last BeginPath.
	Clip()

	FillText(text string, x, y float64)
	MeasureText(text string) TextMetrics

	Translate(x, y float64)
	Rotate(radians float64)
	ResetTransform()

	// Save pushes colours, line width, font size, transform and clip.
	Save()
	Restore()
}

// Painter paints onto a canvas.
type Painter func(c Canvas)
