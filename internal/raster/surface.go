// Package raster implements canvas.Canvas on an in-memory RGBA image.
//
// Shapes are scan converted with golang.org/x/image/vector, text is set in
// Go Mono through golang.org/x/image/font/opentype and transformed text is
// resampled with golang.org/x/image/draw. Only the primitives the key and
// gauge painters use are supported: rectangles, polylines, circular arcs,
// rectangular or polygonal clips and single-line text.
package raster

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/xpdeck/xpdeck/internal/canvas"
)

var identity = f64.Aff3{1, 0, 0, 0, 1, 0}

type point struct{ x, y float64 }

type subpath struct {
	pts    []point
	closed bool
}

type state struct {
	fill      color.RGBA
	stroke    color.RGBA
	lineWidth float64
	fontSize  float64
	ctm       f64.Aff3
	clip      *image.Alpha
}

// Surface is a drawable RGBA image. It is not safe for concurrent use.
type Surface struct {
	img *image.RGBA
	z   *vector.Rasterizer
	state
	path  []subpath
	stack []state
}

// New returns a black surface of the given size.
func New(width, height int) *Surface {
	s := &Surface{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
		z:   vector.NewRasterizer(width, height),
		state: state{
			fill:      color.RGBA{A: 0xff},
			stroke:    color.RGBA{A: 0xff},
			lineWidth: 1,
			fontSize:  10,
			ctm:       identity,
		},
	}
	xdraw.Draw(s.img, s.img.Bounds(), image.NewUniform(color.RGBA{A: 0xff}), image.Point{}, xdraw.Src)
	return s
}

// Image returns the backing image. It remains owned by the surface.
func (s *Surface) Image() *image.RGBA {
	return s.img
}

func (s *Surface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *Surface) SetFillColor(c string) {
	if rgba, ok := ParseColor(c); ok {
		s.fill = rgba
	}
}

func (s *Surface) SetStrokeColor(c string) {
	if rgba, ok := ParseColor(c); ok {
		s.stroke = rgba
	}
}

func (s *Surface) SetLineWidth(w float64) {
	if w > 0 {
		s.lineWidth = w
	}
}

// SetFontSize sets the text size in pixels, capped at MaxFontSize.
func (s *Surface) SetFontSize(px float64) {
	if px > 0 {
		s.fontSize = min(px, MaxFontSize)
	}
}

func (s *Surface) FillRect(x, y, w, h float64) {
	s.fillPolygons([][]point{s.rectPoints(x, y, w, h)}, s.fill)
}

func (s *Surface) StrokeRect(x, y, w, h float64) {
	s.strokePaths([]subpath{{pts: s.rectPoints(x, y, w, h), closed: true}})
}

func (s *Surface) BeginPath() {
	s.path = s.path[:0]
}

func (s *Surface) MoveTo(x, y float64) {
	s.path = append(s.path, subpath{pts: []point{s.apply(x, y)}})
}

func (s *Surface) LineTo(x, y float64) {
	if len(s.path) == 0 {
		s.MoveTo(x, y)
		return
	}
	last := &s.path[len(s.path)-1]
	last.pts = append(last.pts, s.apply(x, y))
}

func (s *Surface) Rect(x, y, w, h float64) {
	s.path = append(s.path, subpath{pts: s.rectPoints(x, y, w, h), closed: true})
}

// Arc appends a clockwise circular arc. A start point different from the
// current point is joined with a straight line.
func (s *Surface) Arc(x, y, radius, start, end float64) {
	if radius <= 0 {
		return
	}
	for end < start {
		end += 2 * math.Pi
	}
	if end-start > 2*math.Pi {
		end = start + 2*math.Pi
	}
	n := int(math.Ceil((end - start) * radius * s.scale() / 2))
	n = max(4, min(n, 256))

	pts := make([]point, 0, n+1)
	for i := 0; i <= n; i++ {
		a := start + (end-start)*float64(i)/float64(n)
		pts = append(pts, s.apply(x+radius*math.Cos(a), y+radius*math.Sin(a)))
	}
	if len(s.path) == 0 {
		s.path = append(s.path, subpath{pts: pts})
		return
	}
	last := &s.path[len(s.path)-1]
	last.pts = append(last.pts, pts...)
}

func (s *Surface) Stroke() {
	s.strokePaths(s.path)
}

// Clip intersects the clip region with the area enclosed by the current
// path.
func (s *Surface) Clip() {
	var polys [][]point
	for _, sp := range s.path {
		if len(sp.pts) >= 3 {
			polys = append(polys, sp.pts)
		}
	}
	mask := s.rasterize(polys)
	if s.clip != nil {
		for i, a := range s.clip.Pix {
			if a < mask.Pix[i] {
				mask.Pix[i] = a
			}
		}
	}
	s.clip = mask
}

func (s *Surface) Translate(x, y float64) {
	s.ctm = mul(s.ctm, f64.Aff3{1, 0, x, 0, 1, y})
}

func (s *Surface) Rotate(rad float64) {
	sin, cos := math.Sincos(rad)
	s.ctm = mul(s.ctm, f64.Aff3{cos, -sin, 0, sin, cos, 0})
}

func (s *Surface) ResetTransform() {
	s.ctm = identity
}

func (s *Surface) Save() {
	s.stack = append(s.stack, s.state)
}

func (s *Surface) Restore() {
	if n := len(s.stack); n > 0 {
		s.state = s.stack[n-1]
		s.stack = s.stack[:n-1]
	}
}

// FillText draws text with its baseline origin at (x, y) in the fill
// colour.
func (s *Surface) FillText(text string, x, y float64) {
	if text == "" {
		return
	}
	faceMu.Lock()
	defer faceMu.Unlock()
	face := faceFor(s.fontSize)

	b, _ := font.BoundString(face, text)
	minX, minY := b.Min.X.Floor(), b.Min.Y.Floor()
	maxX, maxY := b.Max.X.Ceil(), b.Max.Y.Ceil()
	if maxX <= minX || maxY <= minY {
		return
	}

	tile := image.NewRGBA(image.Rect(0, 0, maxX-minX, maxY-minY))
	d := font.Drawer{
		Dst:  tile,
		Src:  image.NewUniform(s.fill),
		Face: face,
		Dot:  fixed.P(-minX, -minY),
	}
	d.DrawString(text)

	m := mul(s.ctm, f64.Aff3{1, 0, x + float64(minX), 0, 1, y + float64(minY)})
	var interp xdraw.Interpolator = xdraw.BiLinear
	if m[0] == 1 && m[1] == 0 && m[3] == 0 && m[4] == 1 {
		interp = xdraw.NearestNeighbor
	}
	interp.Transform(s.img, m, tile, tile.Bounds(), xdraw.Over, s.options())
}

func (s *Surface) MeasureText(text string) canvas.TextMetrics {
	faceMu.Lock()
	defer faceMu.Unlock()
	b, advance := font.BoundString(faceFor(s.fontSize), text)
	return canvas.TextMetrics{
		Width:   fixedToFloat(advance),
		Ascent:  -fixedToFloat(b.Min.Y),
		Descent: fixedToFloat(b.Max.Y),
		Left:    -fixedToFloat(b.Min.X),
		Right:   fixedToFloat(b.Max.X),
	}
}

func (s *Surface) options() *xdraw.Options {
	if s.clip == nil {
		return nil
	}
	return &xdraw.Options{DstMask: s.clip}
}

func (s *Surface) apply(x, y float64) point {
	m := s.ctm
	return point{m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]}
}

func (s *Surface) rectPoints(x, y, w, h float64) []point {
	return []point{s.apply(x, y), s.apply(x+w, y), s.apply(x+w, y+h), s.apply(x, y+h)}
}

// scale is the linear scale factor of the current transform.
func (s *Surface) scale() float64 {
	m := s.ctm
	return math.Sqrt(math.Abs(m[0]*m[4] - m[1]*m[3]))
}

func (s *Surface) strokePaths(paths []subpath) {
	hw := s.lineWidth * s.scale() / 2
	var polys [][]point
	for _, sp := range paths {
		pts := sp.pts
		if sp.closed && len(pts) > 1 {
			pts = append(pts[:len(pts):len(pts)], pts[0])
		}
		for i := 1; i < len(pts); i++ {
			if q := segment(pts[i-1], pts[i], hw); q != nil {
				polys = append(polys, q)
			}
			// round joins keep thick polylines free of notches
			if hw > 0.75 && (i < len(pts)-1 || sp.closed) {
				polys = append(polys, disc(pts[i], hw))
			}
		}
	}
	s.fillPolygons(polys, s.stroke)
}

// segment returns the quad covering a line of half width hw. All quads and
// discs share one winding direction so overlaps do not cancel.
func segment(a, b point, hw float64) []point {
	dx, dy := b.x-a.x, b.y-a.y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil
	}
	nx, ny := -dy/l*hw, dx/l*hw
	return []point{
		{a.x + nx, a.y + ny},
		{b.x + nx, b.y + ny},
		{b.x - nx, b.y - ny},
		{a.x - nx, a.y - ny},
	}
}

func disc(c point, r float64) []point {
	const n = 12
	pts := make([]point, n)
	for i := range pts {
		a := -2 * math.Pi * float64(i) / n
		pts[i] = point{c.x + r*math.Cos(a), c.y + r*math.Sin(a)}
	}
	return pts
}

func (s *Surface) rasterize(polys [][]point) *image.Alpha {
	b := s.img.Bounds()
	mask := image.NewAlpha(b)
	if len(polys) == 0 {
		return mask
	}
	s.z.Reset(b.Dx(), b.Dy())
	s.z.DrawOp = xdraw.Src
	for _, poly := range polys {
		s.z.MoveTo(float32(poly[0].x), float32(poly[0].y))
		for _, p := range poly[1:] {
			s.z.LineTo(float32(p.x), float32(p.y))
		}
		s.z.ClosePath()
	}
	s.z.Draw(mask, b, image.Opaque, image.Point{})
	return mask
}

func (s *Surface) fillPolygons(polys [][]point, c color.RGBA) {
	if len(polys) == 0 || c.A == 0 {
		return
	}
	mask := s.rasterize(polys)
	if s.clip != nil {
		for i, a := range s.clip.Pix {
			mask.Pix[i] = uint8(uint16(mask.Pix[i]) * uint16(a) / 0xff)
		}
	}
	b := s.img.Bounds()
	xdraw.DrawMask(s.img, b, image.NewUniform(c), image.Point{}, mask, b.Min, xdraw.Over)
}

// mul returns the transform applying n then m.
func mul(m, n f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		m[0]*n[0] + m[1]*n[3],
		m[0]*n[1] + m[1]*n[4],
		m[0]*n[2] + m[1]*n[5] + m[2],
		m[3]*n[0] + m[4]*n[3],
		m[3]*n[1] + m[4]*n[4],
		m[3]*n[2] + m[4]*n[5] + m[5],
	}
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

var _ canvas.Canvas = (*Surface)(nil)
