package canvas

import (
	"fmt"
	"strings"
)

// Op is one recorded canvas call. Args holds the numeric arguments in call
// order and Text the string argument, if any. Fill and Stroke are the
// colours in effect when the call was made.
type Op struct {
	Name   string
	Args   []float64
	Text   string
	Fill   string
	Stroke string
	Line   float64
	Font   float64
}

func (o Op) String() string {
	var b strings.Builder
	b.WriteString(o.Name)
	b.WriteByte('(')
	for i, a := range o.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%g", a)
	}
	if o.Text != "" {
		if len(o.Args) > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q", o.Text)
	}
	b.WriteByte(')')
	return b.String()
}

// Recorder is a Canvas that records calls instead of drawing. Text metrics
// are synthetic: every glyph is 0.6em wide, ascends 0.7em and descends
// 0.2em.
type Recorder struct {
	Width  int
	Height int
	Ops    []Op

	fill   string
	stroke string
	line   float64
	font   float64
	stack  []recorderState
}

type recorderState struct {
	fill, stroke string
	line, font   float64
}

// NewRecorder returns a recorder of the given size.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{Width: width, Height: height, fill: "black", stroke: "black", line: 1, font: 10}
}

func (r *Recorder) record(name, text string, args ...float64) {
	r.Ops = append(r.Ops, Op{
		Name:   name,
		Args:   args,
		Text:   text,
		Fill:   r.fill,
		Stroke: r.stroke,
		Line:   r.line,
		Font:   r.font,
	})
}

func (r *Recorder) Size() (int, int) { return r.Width, r.Height }

func (r *Recorder) SetFillColor(c string)   { r.fill = c }
func (r *Recorder) SetStrokeColor(c string) { r.stroke = c }
func (r *Recorder) SetLineWidth(w float64)  { r.line = w }
func (r *Recorder) SetFontSize(px float64)  { r.font = px }

func (r *Recorder) FillRect(x, y, w, h float64)   { r.record("FillRect", "", x, y, w, h) }
func (r *Recorder) StrokeRect(x, y, w, h float64) { r.record("StrokeRect", "", x, y, w, h) }
func (r *Recorder) BeginPath()                    { r.record("BeginPath", "") }
func (r *Recorder) MoveTo(x, y float64)           { r.record("MoveTo", "", x, y) }
func (r *Recorder) LineTo(x, y float64)           { r.record("LineTo", "", x, y) }
func (r *Recorder) Rect(x, y, w, h float64)       { r.record("Rect", "", x, y, w, h) }
func (r *Recorder) Stroke()                       { r.record("Stroke", "") }
func (r *Recorder) Clip()                         { r.record("Clip", "") }
func (r *Recorder) Translate(x, y float64)        { r.record("Translate", "", x, y) }
func (r *Recorder) Rotate(rad float64)            { r.record("Rotate", "", rad) }
func (r *Recorder) ResetTransform()               { r.record("ResetTransform", "") }

func (r *Recorder) Arc(x, y, radius, start, end float64) {
	r.record("Arc", "", x, y, radius, start, end)
}

func (r *Recorder) FillText(text string, x, y float64) {
	r.record("FillText", text, x, y)
}

func (r *Recorder) MeasureText(text string) TextMetrics {
	w := 0.6 * r.font * float64(len([]rune(text)))
	return TextMetrics{
		Width:   w,
		Ascent:  0.7 * r.font,
		Descent: 0.2 * r.font,
		Left:    0,
		Right:   w,
	}
}

func (r *Recorder) Save() {
	r.stack = append(r.stack, recorderState{r.fill, r.stroke, r.line, r.font})
	r.record("Save", "")
}

func (r *Recorder) Restore() {
	if n := len(r.stack); n > 0 {
		s := r.stack[n-1]
		r.stack = r.stack[:n-1]
		r.fill, r.stroke, r.line, r.font = s.fill, s.stroke, s.line, s.font
	}
	r.record("Restore", "")
}

// Calls returns the recorded ops with the given name.
func (r *Recorder) Calls(name string) []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Name == name {
			out = append(out, op)
		}
	}
	return out
}

// Texts returns the strings passed to FillText, in order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Calls("FillText") {
		out = append(out, op.Text)
	}
	return out
}

// Reset discards the recorded ops.
func (r *Recorder) Reset() {
	r.Ops = nil
}

var _ Canvas = (*Recorder)(nil)
