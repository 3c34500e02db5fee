package device

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xpdeck/xpdeck/internal/canvas"
	"github.com/xpdeck/xpdeck/internal/protocol"
)

func TestKnobNames(t *testing.T) {
	tests := []struct {
		name   string
		knob   Knob
		button byte
	}{
		{"knobTL", Knob{Left, Top}, 0x01},
		{"knobCL", Knob{Left, Center}, 0x02},
		{"knobBL", Knob{Left, Bottom}, 0x03},
		{"knobTR", Knob{Right, Top}, 0x04},
		{"knobCR", Knob{Right, Center}, 0x05},
		{"knobBR", Knob{Right, Bottom}, 0x06},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := ParseKnob(tt.name)
			if err != nil {
				t.Fatalf("ParseKnob() error = %v", err)
			}
			if k != tt.knob {
				t.Errorf("ParseKnob() = %+v, want %+v", k, tt.knob)
			}
			if got := k.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := k.Button(); got != tt.button {
				t.Errorf("Button() = 0x%02x, want 0x%02x", got, tt.button)
			}
			if got, ok := KnobFromButton(tt.button); !ok || got != tt.knob {
				t.Errorf("KnobFromButton(0x%02x) = %+v, %v", tt.button, got, ok)
			}
		})
	}

	for _, bad := range []string{"", "knob", "knobXL", "knobTX", "dialTL", "knobTLL"} {
		if _, err := ParseKnob(bad); err == nil {
			t.Errorf("ParseKnob(%q) succeeded", bad)
		}
	}
}

func TestButtonMapping(t *testing.T) {
	if _, ok := KnobFromButton(0x07); ok {
		t.Error("0x07 mapped to a knob")
	}
	for i := 0; i < protocol.PageButtons; i++ {
		if got, ok := PageFromButton(PageButton(i)); !ok || got != i {
			t.Errorf("PageFromButton(PageButton(%d)) = %d, %v", i, got, ok)
		}
	}
	for _, id := range []byte{0x00, 0x06, 0x0f} {
		if _, ok := PageFromButton(id); ok {
			t.Errorf("PageFromButton(0x%02x) accepted", id)
		}
	}
}

func TestEventAccessors(t *testing.T) {
	ev := Event{Kind: EventDown, Button: 0x09}
	if p, ok := ev.Page(); !ok || p != 2 {
		t.Errorf("Page() = %d, %v, want 2, true", p, ok)
	}
	if _, ok := ev.Knob(); ok {
		t.Error("page button reported as knob")
	}

	ev = Event{Kind: EventRotate, Button: 0x05, Delta: -1}
	if k, ok := ev.Knob(); !ok || k != (Knob{Right, Center}) {
		t.Errorf("Knob() = %+v, %v", k, ok)
	}
	if _, ok := ev.Page(); ok {
		t.Error("rotate reported as page button")
	}
	if got := ev.String(); got != "rotate knobCR -1" {
		t.Errorf("String() = %q", got)
	}
}

// fakePanel is a WebSocket endpoint standing in for the hardware.
type fakePanel struct {
	srv  *httptest.Server
	conn chan *websocket.Conn
}

func newFakePanel(t *testing.T) *fakePanel {
	t.Helper()
	p := &fakePanel{conn: make(chan *websocket.Conn, 1)}
	upgrader := websocket.Upgrader{}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade() error = %v", err)
			return
		}
		p.conn <- c
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakePanel) addr() string {
	return strings.TrimPrefix(p.srv.URL, "http://")
}

func dialFake(t *testing.T) (*Live, *websocket.Conn) {
	t.Helper()
	p := newFakePanel(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	l, err := Dial(ctx, p.addr())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	var c *websocket.Conn
	select {
	case c = <-p.conn:
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw the connection")
	}
	t.Cleanup(func() { _ = c.Close() })

	if ev := next(t, l); ev.Kind != EventConnect {
		t.Fatalf("first event = %s, want connect", ev.Kind)
	}
	return l, c
}

func next(t *testing.T, l *Live) Event {
	t.Helper()
	select {
	case ev, ok := <-l.Events():
		if !ok {
			t.Fatal("event stream closed")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an event")
	}
	return Event{}
}

// readPacket returns the next host packet that is not a SERIAL/VERSION
// request.
func readPacket(t *testing.T, c *websocket.Conn) protocol.Message {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v", err)
		}
		p, err := protocol.ParsePacket(data)
		if err != nil {
			t.Fatalf("ParsePacket() error = %v", err)
		}
		msg, err := p.ParseMessage()
		if err != nil {
			t.Fatalf("ParseMessage() error = %v", err)
		}
		if _, ok := msg.(*protocol.InfoMessage); ok {
			continue
		}
		return msg
	}
}

func send(t *testing.T, c *websocket.Conn, cmd protocol.Command, payload ...byte) {
	t.Helper()
	if err := c.WriteMessage(websocket.BinaryMessage, protocol.BuildPacket(cmd, 1, payload)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
}

func TestLive_InputEvents(t *testing.T) {
	l, c := dialFake(t)

	send(t, c, protocol.CmdButtonPress, 0x08, 0x00)
	ev := next(t, l)
	if p, ok := ev.Page(); ev.Kind != EventDown || !ok || p != 1 {
		t.Errorf("event = %s, want down page 1", ev)
	}

	send(t, c, protocol.CmdKnobRotate, 0x04, 0x01)
	ev = next(t, l)
	if k, ok := ev.Knob(); ev.Kind != EventRotate || !ok || k != (Knob{Right, Top}) || ev.Delta != 1 {
		t.Errorf("event = %s, want rotate knobTR +1", ev)
	}
}

func TestLive_TouchTracking(t *testing.T) {
	l, c := dialFake(t)

	// finger 1 on key 5 (x 150..239, y 90..179)
	send(t, c, protocol.CmdTouch, 0x00, 0x00, 0xc8, 0x00, 0x64, 0x01)
	ev := next(t, l)
	if ev.Kind != EventTouchStart || len(ev.Touches) != 1 || ev.Changed[0].Key != 5 {
		t.Fatalf("event = %s %+v, want touchstart on key 5", ev, ev.Changed)
	}

	// finger 2 on the left strip
	send(t, c, protocol.CmdTouch, 0x00, 0x00, 0x0a, 0x00, 0x0a, 0x02)
	ev = next(t, l)
	if ev.Kind != EventTouchStart || len(ev.Touches) != 2 || ev.Changed[0].OnKey() {
		t.Fatalf("event = %s %+v, want strip touchstart with 2 active", ev, ev.Changed)
	}

	// finger 1 slides to key 6
	send(t, c, protocol.CmdTouch, 0x00, 0x01, 0x18, 0x00, 0x64, 0x01)
	ev = next(t, l)
	if ev.Kind != EventTouchMove || ev.Changed[0].Key != 6 {
		t.Fatalf("event = %s %+v, want touchmove to key 6", ev, ev.Changed)
	}

	send(t, c, protocol.CmdTouchEnd, 0x00, 0x01, 0x18, 0x00, 0x64, 0x01)
	ev = next(t, l)
	if ev.Kind != EventTouchEnd || len(ev.Touches) != 1 || ev.Touches[0].ID != 2 {
		t.Fatalf("event = %s %+v, want touchend leaving finger 2", ev, ev.Touches)
	}
}

func TestLive_DrawKey(t *testing.T) {
	l, c := dialFake(t)

	err := l.DrawKey(7, func(cv canvas.Canvas) {
		cv.SetFillColor("white")
		cv.FillRect(0, 0, 90, 90)
	})
	if err != nil {
		t.Fatalf("DrawKey() error = %v", err)
	}

	fb, ok := readPacket(t, c).(*protocol.FramebufferMessage)
	if !ok {
		t.Fatal("first packet is not FRAMEBUFF")
	}
	if fb.Display != protocol.DisplayCenter || fb.X != 270 || fb.Y != 90 || fb.W != 90 || fb.H != 90 {
		t.Errorf("framebuffer = %s, want center 90x90 at (270,90)", fb)
	}
	if fb.Pixels[0] != 0xff || fb.Pixels[1] != 0xff {
		t.Errorf("first pixel = % x, want white", fb.Pixels[:2])
	}
	if d, ok := readPacket(t, c).(*protocol.DrawMessage); !ok || d.Display != protocol.DisplayCenter {
		t.Errorf("second packet = %v, want DRAW center", d)
	}

	if err := l.DrawKey(12, func(canvas.Canvas) {}); err == nil {
		t.Error("DrawKey(12) accepted")
	}
}

func TestLive_ButtonColorAndVibrate(t *testing.T) {
	l, c := dialFake(t)

	if err := l.SetButtonColor(0, "#00b4d8"); err != nil {
		t.Fatalf("SetButtonColor() error = %v", err)
	}
	sc, ok := readPacket(t, c).(*protocol.SetColorMessage)
	if !ok || *sc != (protocol.SetColorMessage{Button: 0x07, R: 0x00, G: 0xb4, B: 0xd8}) {
		t.Errorf("SET_COLOR = %v", sc)
	}

	if err := l.Vibrate(protocol.VibrateRevFastest); err != nil {
		t.Fatalf("Vibrate() error = %v", err)
	}
	if v, ok := readPacket(t, c).(*protocol.ByteMessage); !ok || v.Cmd != protocol.CmdSetVibration || v.Value != 0x63 {
		t.Errorf("SET_VIBRATION = %v", v)
	}

	if err := l.SetButtonColor(0, "nope"); err == nil {
		t.Error("invalid colour accepted")
	}
}

func TestLive_Disconnect(t *testing.T) {
	l, c := dialFake(t)
	_ = c.Close()

	if ev := next(t, l); ev.Kind != EventDisconnect {
		t.Errorf("event = %s, want disconnect", ev.Kind)
	}
	if _, ok := <-l.Events(); ok {
		t.Error("event stream still open after disconnect")
	}
	if err := l.Close(); err != nil && !strings.Contains(err.Error(), "closed") {
		t.Logf("Close() = %v", err)
	}
	if err := l.Vibrate(1); err != ErrClosed {
		t.Errorf("Vibrate() after Close = %v, want ErrClosed", err)
	}
}
