package device

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/xpdeck/xpdeck/internal/canvas"
	"github.com/xpdeck/xpdeck/internal/logging"
	"github.com/xpdeck/xpdeck/internal/protocol"
	"github.com/xpdeck/xpdeck/internal/raster"
)

const (
	// Time allowed to write a packet to the device
	writeWait = 10 * time.Second

	// Packets queued ahead of the writer
	sendQueue = 64

	dialTimeout = 5 * time.Second
)

// ErrClosed is returned by operations on a closed connection.
var ErrClosed = errors.New("device connection closed")

// Live is a connected Loupedeck Live.
type Live struct {
	conn    *websocket.Conn
	addr    string
	session string

	tx     protocol.TxCounter
	send   chan []byte
	events chan Event

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	// owned by the reader goroutine
	touches map[byte]Touch
}

// Dial connects to the device WebSocket at addr ("host:port"). The first
// event delivered is EventConnect.
func Dial(ctx context.Context, addr string) (*Live, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/"}
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	l := &Live{
		conn:    conn,
		addr:    addr,
		session: xid.New().String(),
		send:    make(chan []byte, sendQueue),
		events:  make(chan Event, 32),
		done:    make(chan struct{}),
		touches: make(map[byte]Touch),
	}
	l.events <- Event{Kind: EventConnect}

	logging.Info("Connected to device",
		zap.String("addr", addr),
		zap.String("session", l.session),
	)

	l.wg.Add(2)
	go l.writeLoop()
	go l.readLoop()

	_ = l.enqueue(protocol.BuildRequest(l.tx.Next(), protocol.CmdSerial))
	_ = l.enqueue(protocol.BuildRequest(l.tx.Next(), protocol.CmdVersion))
	return l, nil
}

// Addr returns the address the device was dialled at.
func (l *Live) Addr() string { return l.addr }

// Session returns the id used to correlate this connection in logs.
func (l *Live) Session() string { return l.session }

// Events returns the event stream. It is closed after EventDisconnect.
func (l *Live) Events() <-chan Event { return l.events }

// DrawKey paints key i (0..11) of the center display.
func (l *Live) DrawKey(i int, paint canvas.Painter) error {
	if i < 0 || i >= protocol.KeyColumns*protocol.KeyRows {
		return fmt.Errorf("key %d out of range", i)
	}
	s := raster.New(protocol.KeySize, protocol.KeySize)
	paint(s)
	x, y := protocol.KeyOrigin(i)
	return l.flush(protocol.DisplayCenter, x, y, s)
}

// DrawScreen paints a whole display.
func (l *Live) DrawScreen(d protocol.Display, paint canvas.Painter) error {
	s := raster.New(d.Size())
	paint(s)
	return l.flush(d, 0, 0, s)
}

func (l *Live) flush(d protocol.Display, x, y int, s *raster.Surface) error {
	img := s.Image()
	fb, err := protocol.BuildFramebuffer(l.tx.Next(), d, x, y, img, img.Bounds())
	if err != nil {
		return err
	}
	if err := l.enqueue(fb); err != nil {
		return err
	}
	return l.enqueue(protocol.BuildDraw(l.tx.Next(), d))
}

// SetButtonColor sets the LED of round button i to a CSS colour.
func (l *Live) SetButtonColor(i int, color string) error {
	c, ok := raster.ParseColor(color)
	if !ok {
		return fmt.Errorf("invalid colour %q", color)
	}
	return l.enqueue(protocol.BuildSetColor(l.tx.Next(), PageButton(i), c.R, c.G, c.B))
}

// Vibrate plays a haptic pattern.
func (l *Live) Vibrate(pattern byte) error {
	return l.enqueue(protocol.BuildVibrate(l.tx.Next(), pattern))
}

// SetBrightness sets the backlight, 0..10.
func (l *Live) SetBrightness(level int) error {
	return l.enqueue(protocol.BuildBrightness(l.tx.Next(), byte(max(0, min(level, 10)))))
}

// Close closes the connection and waits for both goroutines. It is safe to
// call more than once.
func (l *Live) Close() error {
	err := l.shutdown()
	l.wg.Wait()
	return err
}

func (l *Live) shutdown() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		_ = l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = l.conn.Close()
	})
	return err
}

func (l *Live) enqueue(pkt []byte) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.send <- pkt:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

func (l *Live) writeLoop() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case pkt := <-l.send:
			_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.BinaryMessage, pkt); err != nil {
				logging.Warn("Failed to write to device",
					zap.String("session", l.session),
					zap.Error(err),
				)
				_ = l.shutdown()
				return
			}
		}
	}
}

func (l *Live) readLoop() {
	defer l.wg.Done()
	defer close(l.events)

	for {
		kind, data, err := l.conn.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
			default:
				logging.Info("Device connection lost",
					zap.String("session", l.session),
					zap.Error(err),
				)
			}
			l.emit(Event{Kind: EventDisconnect})
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		p, err := protocol.ParsePacket(data)
		if err != nil {
			logging.Warn("Dropping malformed packet", zap.String("session", l.session), zap.Error(err))
			continue
		}
		msg, err := p.ParseMessage()
		if err != nil {
			logging.Warn("Dropping undecodable packet",
				zap.String("session", l.session),
				zap.String("packet", p.String()),
				zap.Error(err),
			)
			continue
		}
		if ev, ok := l.translate(msg); ok {
			logging.LogDeviceEvent(l.session, ev.String())
			l.emit(ev)
		}
	}
}

// emit delivers ev unless the connection is being closed.
func (l *Live) emit(ev Event) {
	select {
	case l.events <- ev:
	case <-l.done:
	}
}

func (l *Live) translate(msg protocol.Message) (Event, bool) {
	switch m := msg.(type) {
	case *protocol.ButtonMessage:
		kind := EventUp
		if m.Down {
			kind = EventDown
		}
		return Event{Kind: kind, Button: m.Button}, true

	case *protocol.RotateMessage:
		return Event{Kind: EventRotate, Button: m.Button, Delta: int(m.Delta)}, true

	case *protocol.TouchMessage:
		t := NewTouch(m.ID, int(m.X), int(m.Y))
		kind := EventTouchMove
		switch {
		case m.End:
			kind = EventTouchEnd
			delete(l.touches, m.ID)
		case !l.has(m.ID):
			kind = EventTouchStart
			l.touches[m.ID] = t
		default:
			l.touches[m.ID] = t
		}
		return Event{Kind: kind, Changed: []Touch{t}, Touches: l.active()}, true

	case *protocol.InfoMessage:
		logging.Info("Device info",
			zap.String("session", l.session),
			zap.String(m.Cmd.String(), m.Value),
		)
		return Event{}, false

	default:
		logging.Debug("Ignoring device packet",
			zap.String("session", l.session),
			zap.String("message", msg.String()),
		)
		return Event{}, false
	}
}

func (l *Live) has(id byte) bool {
	_, ok := l.touches[id]
	return ok
}

// active returns the active touches ordered by id.
func (l *Live) active() []Touch {
	out := make([]Touch, 0, len(l.touches))
	for _, t := range l.touches {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
