package protocol

import (
	"image"
	"image/color"
	"testing"
)

func parse(t *testing.T, data []byte) Message {
	t.Helper()
	p, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("ParsePacket() error = %v", err)
	}
	msg, err := p.ParseMessage()
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	return msg
}

func TestParseMessage_Input(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Message
	}{
		{
			name: "page button down",
			data: []byte{0x05, 0x00, 0x01, 0x08, 0x00},
			want: &ButtonMessage{Button: 0x08, Down: true},
		},
		{
			name: "knob click up",
			data: []byte{0x05, 0x00, 0x01, ButtonKnobCR, 0x01},
			want: &ButtonMessage{Button: ButtonKnobCR, Down: false},
		},
		{
			name: "knob rotate counter-clockwise",
			data: []byte{0x05, 0x01, 0x01, ButtonKnobTL, 0xff},
			want: &RotateMessage{Button: ButtonKnobTL, Delta: -1},
		},
		{
			name: "touch",
			data: []byte{0x09, 0x4d, 0x01, 0x00, 0x01, 0x2c, 0x00, 0x64, 0x03},
			want: &TouchMessage{X: 300, Y: 100, ID: 3},
		},
		{
			name: "touch end",
			data: []byte{0x09, 0x6d, 0x01, 0x00, 0x00, 0x0a, 0x00, 0x14, 0x01},
			want: &TouchMessage{X: 10, Y: 20, ID: 1, End: true},
		},
		{
			name: "version reply",
			data: []byte{0x06, 0x07, 0x02, 0x00, 0x02, 0x05},
			want: &InfoMessage{Cmd: CmdVersion, Value: "0.2.5"},
		},
		{
			name: "serial reply",
			data: append([]byte{0x0b, 0x03, 0x02}, "LDD1234"...),
			want: &InfoMessage{Cmd: CmdSerial, Value: "LDD1234"},
		},
		{
			name: "unknown",
			data: []byte{0x04, 0x42, 0x01, 0xaa},
			want: &UnknownMessage{Cmd: 0x42, Data: []byte{0xaa}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parse(t, tt.data)
			if got.String() != tt.want.String() {
				t.Errorf("ParseMessage() = %s, want %s", got, tt.want)
			}
			if got.Command() != tt.want.Command() {
				t.Errorf("Command() = %s, want %s", got.Command(), tt.want.Command())
			}
		})
	}
}

func TestParseMessage_Short(t *testing.T) {
	for _, data := range [][]byte{
		{0x04, 0x00, 0x01, 0x07},
		{0x04, 0x01, 0x01, 0x07},
		{0x06, 0x4d, 0x01, 0x00, 0x01, 0x2c},
		{0x03, 0x02, 0x01},
		{0x04, 0x0f, 0x01, 0x00},
	} {
		p, err := ParsePacket(data)
		if err != nil {
			t.Fatalf("ParsePacket(% x) error = %v", data, err)
		}
		if _, err := p.ParseMessage(); err == nil {
			t.Errorf("ParseMessage(% x) succeeded, want error", data)
		}
	}
}

func TestHostCommandsRoundTrip(t *testing.T) {
	if m, ok := parse(t, BuildSetColor(1, ButtonPage0+2, 0x10, 0x20, 0x30)).(*SetColorMessage); !ok ||
		*m != (SetColorMessage{Button: 0x09, R: 0x10, G: 0x20, B: 0x30}) {
		t.Errorf("SetColor round trip = %v", m)
	}
	if m, ok := parse(t, BuildVibrate(2, VibrateRevFastest)).(*ByteMessage); !ok ||
		*m != (ByteMessage{Cmd: CmdSetVibration, Value: 0x63}) {
		t.Errorf("Vibrate round trip = %v", m)
	}
	if m, ok := parse(t, BuildBrightness(3, 200)).(*ByteMessage); !ok || m.Value != 10 {
		t.Errorf("Brightness clamps to 10, got %v", m)
	}
	if m, ok := parse(t, BuildDraw(4, DisplayRight)).(*DrawMessage); !ok || m.Display != DisplayRight {
		t.Errorf("Draw round trip = %v", m)
	}
	if m, ok := parse(t, BuildRequest(5, CmdSerial)).(*InfoMessage); !ok || m.Value != "" {
		t.Errorf("Serial request = %v, want empty value", m)
	}
}

func TestFramebufferRoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	colors := []color.RGBA{
		{0xff, 0x00, 0x00, 0xff},
		{0x00, 0xff, 0x00, 0xff},
		{0x00, 0x00, 0xff, 0xff},
		{0xff, 0xff, 0xff, 0xff},
	}
	for x := 0; x < 4; x++ {
		src.SetRGBA(x, 1, colors[x])
	}

	pkt, err := BuildFramebuffer(9, DisplayCenter, 90, 180, src, src.Bounds())
	if err != nil {
		t.Fatalf("BuildFramebuffer() error = %v", err)
	}
	if want := HeaderSize + 10 + 4*2*2; len(pkt) != want {
		t.Errorf("len = %d, want %d", len(pkt), want)
	}

	m, ok := parse(t, pkt).(*FramebufferMessage)
	if !ok {
		t.Fatalf("ParseMessage() type = %T, want *FramebufferMessage", m)
	}
	if m.Display != DisplayCenter || m.X != 90 || m.Y != 180 || m.W != 4 || m.H != 2 {
		t.Errorf("header = %s", m)
	}

	dst := image.NewRGBA(image.Rect(0, 0, CenterWidth, ScreenHeight))
	DecodeRGB565(dst, m.X, m.Y, m.W, m.H, m.Pixels)
	for x, want := range colors {
		if got := dst.RGBAAt(90+x, 181); got != want {
			t.Errorf("pixel %d = %v, want %v", x, got, want)
		}
	}
	if got := dst.RGBAAt(90, 180); got != (color.RGBA{A: 0xff}) {
		t.Errorf("black pixel decoded as %v", got)
	}
}

func TestBuildFramebuffer_Bounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 90, 90))
	if _, err := BuildFramebuffer(1, DisplayLeft, 0, 0, img, img.Bounds()); err == nil {
		t.Error("90px wide image on the 60px strip accepted")
	}
	if _, err := BuildFramebuffer(1, DisplayCenter, 0, 0, img, image.Rectangle{}); err == nil {
		t.Error("empty rectangle accepted")
	}
	if _, err := BuildFramebuffer(1, DisplayCenter, 270, 180, img, img.Bounds()); err != nil {
		t.Errorf("bottom-right key rejected: %v", err)
	}
}

func TestRGB565(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    uint16
	}{
		{0, 0, 0, 0x0000},
		{0xff, 0xff, 0xff, 0xffff},
		{0xff, 0, 0, 0xf800},
		{0, 0xff, 0, 0x07e0},
		{0, 0, 0xff, 0x001f},
	}
	for _, tt := range tests {
		if got := RGB565(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("RGB565(%d,%d,%d) = 0x%04x, want 0x%04x", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
}

func TestLocate(t *testing.T) {
	tests := []struct {
		x, y    int
		display Display
		key     int
	}{
		{0, 0, DisplayLeft, -1},
		{59, 269, DisplayLeft, -1},
		{60, 0, DisplayCenter, 0},
		{149, 89, DisplayCenter, 0},
		{150, 0, DisplayCenter, 1},
		{419, 0, DisplayCenter, 3},
		{60, 90, DisplayCenter, 4},
		{419, 269, DisplayCenter, 11},
		{420, 100, DisplayRight, -1},
		{200, 270, DisplayCenter, -1},
	}
	for _, tt := range tests {
		d, key := Locate(tt.x, tt.y)
		if d != tt.display || key != tt.key {
			t.Errorf("Locate(%d, %d) = %s, %d, want %s, %d", tt.x, tt.y, d, key, tt.display, tt.key)
		}
	}
}

func TestKeyOrigin(t *testing.T) {
	for i := 0; i < KeyColumns*KeyRows; i++ {
		x, y := KeyOrigin(i)
		if _, key := Locate(x+StripWidth, y); key != i {
			t.Errorf("Locate(KeyOrigin(%d)) = key %d", i, key)
		}
	}
}

func TestDeviceInputRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  []byte
		want Message
	}{
		{"page down", BuildButton(1, ButtonPage0+3, true), &ButtonMessage{Button: 0x0a, Down: true}},
		{"knob up", BuildButton(2, ButtonKnobBR, false), &ButtonMessage{Button: 0x06, Down: false}},
		{"rotate ccw", BuildRotate(3, ButtonKnobTL, -1), &RotateMessage{Button: 0x01, Delta: -1}},
		{"touch", BuildTouch(4, 300, 120, 7, false), &TouchMessage{X: 300, Y: 120, ID: 7}},
		{"touch end", BuildTouch(5, 300, 120, 7, true), &TouchMessage{X: 300, Y: 120, ID: 7, End: true}},
		{"serial", BuildInfo(6, CmdSerial, "LDD1234"), &InfoMessage{Cmd: CmdSerial, Value: "LDD1234"}},
		{"version", BuildInfo(7, CmdVersion, "0.2.26"), &InfoMessage{Cmd: CmdVersion, Value: "0.2.26"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parse(t, tt.pkt)
			if got.String() != tt.want.String() {
				t.Errorf("parse() = %v, want %v", got, tt.want)
			}
		})
	}
}
