package protocol

import (
	"encoding/binary"
	"fmt"
	"image"
)

// Display is one of the three LCD regions behind the touch glass.
type Display byte

const (
	DisplayLeft Display = iota
	DisplayCenter
	DisplayRight
)

// Display geometry of the Loupedeck Live.
const (
	ScreenHeight = 270
	StripWidth   = 60
	CenterWidth  = 360
	KeySize      = 90
	KeyColumns   = 4
	KeyRows      = 3
)

var displayIDs = [...][2]byte{
	DisplayLeft:   {0x00, 'L'},
	DisplayCenter: {0x00, 'A'},
	DisplayRight:  {0x00, 'R'},
}

func (d Display) String() string {
	switch d {
	case DisplayLeft:
		return "left"
	case DisplayCenter:
		return "center"
	case DisplayRight:
		return "right"
	default:
		return fmt.Sprintf("display(%d)", byte(d))
	}
}

// Size returns the display size in pixels.
func (d Display) Size() (int, int) {
	if d == DisplayCenter {
		return CenterWidth, ScreenHeight
	}
	return StripWidth, ScreenHeight
}

// ID returns the two-byte id used in FRAMEBUFF and DRAW payloads.
func (d Display) ID() [2]byte {
	if int(d) < len(displayIDs) {
		return displayIDs[d]
	}
	return [2]byte{}
}

func displayFromID(b []byte) (Display, error) {
	for d, id := range displayIDs {
		if id[0] == b[0] && id[1] == b[1] {
			return Display(d), nil
		}
	}
	return 0, fmt.Errorf("unknown display id 0x%02x%02x", b[0], b[1])
}

// BuildRequest constructs a payload-less request such as SERIAL, VERSION
// or RESET.
func BuildRequest(tx byte, cmd Command) []byte {
	return BuildPacket(cmd, tx, nil)
}

// BuildSetColor sets the LED colour of a round button.
func BuildSetColor(tx, button, r, g, b byte) []byte {
	return BuildPacket(CmdSetColor, tx, []byte{button, r, g, b})
}

// BuildVibrate triggers a haptic pattern such as VibrateRevFastest.
func BuildVibrate(tx, pattern byte) []byte {
	return BuildPacket(CmdSetVibration, tx, []byte{pattern})
}

// BuildBrightness sets the backlight level, 0..10 on the Live.
func BuildBrightness(tx, level byte) []byte {
	return BuildPacket(CmdSetBrightness, tx, []byte{min(level, 10)})
}

// BuildFramebuffer writes the pixels of img inside r, encoded RGB565, to
// display d at (x, y).
//
// Payload Structure:
//
//	[0-1]   display id
//	[2-3]   x   (BE16)
//	[4-5]   y   (BE16)
//	[6-7]   w   (BE16)
//	[8-9]   h   (BE16)
//	[10+]   w*h RGB565 pixels, little-endian, row major
func BuildFramebuffer(tx byte, d Display, x, y int, img image.Image, r image.Rectangle) ([]byte, error) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("empty framebuffer rectangle")
	}
	dw, dh := d.Size()
	if x < 0 || y < 0 || x+r.Dx() > dw || y+r.Dy() > dh {
		return nil, fmt.Errorf("%dx%d at (%d,%d) does not fit the %s display", r.Dx(), r.Dy(), x, y, d)
	}

	payload := make([]byte, 10, 10+r.Dx()*r.Dy()*2)
	id := d.ID()
	copy(payload[0:2], id[:])
	binary.BigEndian.PutUint16(payload[2:4], uint16(x))
	binary.BigEndian.PutUint16(payload[4:6], uint16(y))
	binary.BigEndian.PutUint16(payload[6:8], uint16(r.Dx()))
	binary.BigEndian.PutUint16(payload[8:10], uint16(r.Dy()))
	payload = AppendRGB565(payload, img, r)
	return BuildPacket(CmdFramebuffer, tx, payload), nil
}

// BuildDraw asks the device to show what was written to d's framebuffer.
func BuildDraw(tx byte, d Display) []byte {
	id := d.ID()
	return BuildPacket(CmdDraw, tx, id[:])
}

// BuildButton reports a round button or knob click.
func BuildButton(tx, button byte, down bool) []byte {
	state := byte(0x01)
	if down {
		state = 0x00
	}
	return BuildPacket(CmdButtonPress, tx, []byte{button, state})
}

// BuildRotate reports a knob turn; delta is signed clicks.
func BuildRotate(tx, button byte, delta int8) []byte {
	return BuildPacket(CmdKnobRotate, tx, []byte{button, byte(delta)})
}

// BuildTouch reports a finger at (x, y) in panel coordinates, or its
// release when end is set.
func BuildTouch(tx byte, x, y int, id byte, end bool) []byte {
	cmd := CmdTouch
	if end {
		cmd = CmdTouchEnd
	}
	payload := make([]byte, 6)
	binary.BigEndian.PutUint16(payload[1:3], uint16(x))
	binary.BigEndian.PutUint16(payload[3:5], uint16(y))
	payload[5] = id
	return BuildPacket(cmd, tx, payload)
}

// BuildInfo answers a SERIAL or VERSION request. VERSION values are
// "major.minor.patch".
func BuildInfo(tx byte, cmd Command, value string) []byte {
	if cmd != CmdVersion {
		return BuildPacket(cmd, tx, []byte(value))
	}
	var v [3]byte
	var a, b, c int
	if _, err := fmt.Sscanf(value, "%d.%d.%d", &a, &b, &c); err == nil {
		v = [3]byte{byte(a), byte(b), byte(c)}
	}
	return BuildPacket(cmd, tx, v[:])
}

// RGB565 packs an 8-bit colour.
func RGB565(r, g, b uint8) uint16 {
	return uint16(r&0xf8)<<8 | uint16(g&0xfc)<<3 | uint16(b>>3)
}

// AppendRGB565 appends the pixels of img inside r to buf.
func AppendRGB565(buf []byte, img image.Image, r image.Rectangle) []byte {
	if rgba, ok := img.(*image.RGBA); ok {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				c := rgba.RGBAAt(x, y)
				buf = binary.LittleEndian.AppendUint16(buf, RGB565(c.R, c.G, c.B))
			}
		}
		return buf
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			buf = binary.LittleEndian.AppendUint16(buf, RGB565(uint8(cr>>8), uint8(cg>>8), uint8(cb>>8)))
		}
	}
	return buf
}

// DecodeRGB565 draws w*h little-endian RGB565 pixels into dst at (x, y).
// Pixels outside dst are dropped.
func DecodeRGB565(dst *image.RGBA, x, y, w, h int, pixels []byte) {
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			i := (row*w + col) * 2
			if i+1 >= len(pixels) {
				return
			}
			p := image.Pt(x+col, y+row)
			if !p.In(dst.Bounds()) {
				continue
			}
			v := binary.LittleEndian.Uint16(pixels[i:])
			r, g, b := uint8(v>>11), uint8(v>>5&0x3f), uint8(v&0x1f)
			off := dst.PixOffset(p.X, p.Y)
			dst.Pix[off+0] = r<<3 | r>>2
			dst.Pix[off+1] = g<<2 | g>>4
			dst.Pix[off+2] = b<<3 | b>>2
			dst.Pix[off+3] = 0xff
		}
	}
}
