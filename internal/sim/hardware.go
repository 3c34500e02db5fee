package sim

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/xpdeck/xpdeck/internal/protocol"
)

const (
	// Serial is reported in answer to a SERIAL request.
	Serial = "XPDECK-SIM-0001"
	// FirmwareVersion is reported in answer to a VERSION request.
	FirmwareVersion = "0.2.26"
)

// Hardware is the state a real panel keeps: what each display shows, the
// round button LEDs, the backlight and the last haptic pattern.
type Hardware struct {
	mu sync.Mutex

	// back receives FRAMEBUFF writes; DRAW copies it to front
	back  [3]*image.RGBA
	front [3]*image.RGBA

	buttons    [protocol.PageButtons]color.RGBA
	brightness byte
	vibration  byte
	vibrations int
	frames     int
}

// NewHardware returns a panel with black displays and dark buttons.
func NewHardware() *Hardware {
	h := &Hardware{brightness: 10}
	for _, d := range []protocol.Display{protocol.DisplayLeft, protocol.DisplayCenter, protocol.DisplayRight} {
		w, ht := d.Size()
		h.back[d] = blank(w, ht)
		h.front[d] = blank(w, ht)
	}
	return h
}

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return img
}

// Apply executes a host command. It reports whether anything visible
// changed.
func (h *Hardware) Apply(msg protocol.Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch m := msg.(type) {
	case *protocol.FramebufferMessage:
		protocol.DecodeRGB565(h.back[m.Display], m.X, m.Y, m.W, m.H, m.Pixels)
		return false

	case *protocol.DrawMessage:
		copy(h.front[m.Display].Pix, h.back[m.Display].Pix)
		h.frames++
		return true

	case *protocol.SetColorMessage:
		i := int(m.Button) - int(protocol.ButtonPage0)
		if i < 0 || i >= protocol.PageButtons {
			return false
		}
		h.buttons[i] = color.RGBA{R: m.R, G: m.G, B: m.B, A: 0xff}
		return true

	case *protocol.ByteMessage:
		switch m.Cmd {
		case protocol.CmdSetBrightness:
			h.brightness = m.Value
		case protocol.CmdSetVibration:
			h.vibration = m.Value
			h.vibrations++
		}
		return true
	}
	return false
}

// blit draws img at (x, y) on display d, bypassing the back buffer.
func (h *Hardware) blit(d protocol.Display, x, y int, img image.Image) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := img.Bounds().Sub(img.Bounds().Min).Add(image.Pt(x, y))
	draw.Draw(h.back[d], r, img, img.Bounds().Min, draw.Src)
	draw.Draw(h.front[d], r, img, img.Bounds().Min, draw.Src)
	h.frames++
}

func (h *Hardware) setButton(i int, c color.RGBA) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i >= 0 && i < protocol.PageButtons {
		h.buttons[i] = c
	}
}

func (h *Hardware) vibrate(pattern byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.vibration = pattern
	h.vibrations++
}

// Snapshot returns a copy of what display d shows.
func (h *Hardware) Snapshot(d protocol.Display) *image.RGBA {
	h.mu.Lock()
	defer h.mu.Unlock()
	src := h.front[d]
	img := image.NewRGBA(src.Rect)
	copy(img.Pix, src.Pix)
	return img
}

// Glass returns the three displays side by side, as the panel looks.
func (h *Hardware) Glass() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, protocol.StripWidth*2+protocol.CenterWidth, protocol.ScreenHeight))
	x := 0
	for _, d := range []protocol.Display{protocol.DisplayLeft, protocol.DisplayCenter, protocol.DisplayRight} {
		snap := h.Snapshot(d)
		r := snap.Bounds().Add(image.Pt(x, 0))
		draw.Draw(img, r, snap, image.Point{}, draw.Src)
		x += snap.Bounds().Dx()
	}
	return img
}

// Button returns the LED colour of round button i.
func (h *Hardware) Button(i int) color.RGBA {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 || i >= protocol.PageButtons {
		return color.RGBA{}
	}
	return h.buttons[i]
}

// Status is a point-in-time summary for the status line.
type Status struct {
	Brightness byte
	Vibration  byte
	Vibrations int
	Frames     int
}

// Status returns counters and settings.
func (h *Hardware) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Status{
		Brightness: h.brightness,
		Vibration:  h.vibration,
		Vibrations: h.vibrations,
		Frames:     h.frames,
	}
}
