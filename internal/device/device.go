// Package device talks to a Loupedeck Live over its WebSocket endpoint.
//
// Live owns one connection. A reader goroutine turns packets into Events
// and tracks the set of active touches; a writer goroutine sends queued
// packets in order. Drawing is synchronous for the caller: the painter runs
// on an off-screen raster surface and the encoded frame is queued.
package device

import (
	"fmt"
	"strings"

	"github.com/xpdeck/xpdeck/internal/protocol"
)

// Side of the panel a knob or strip belongs to.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// Position of a knob within its column.
type Position int

const (
	Top Position = iota
	Center
	Bottom
)

func (p Position) String() string {
	switch p {
	case Top:
		return "top"
	case Center:
		return "center"
	case Bottom:
		return "bottom"
	default:
		return fmt.Sprintf("position(%d)", int(p))
	}
}

// Knob identifies one of the six rotary knobs.
type Knob struct {
	Side     Side
	Position Position
}

var positionLetters = [...]string{Top: "T", Center: "C", Bottom: "B"}

// String returns the device name of the knob, e.g. "knobTL".
func (k Knob) String() string {
	side := "L"
	if k.Side == Right {
		side = "R"
	}
	if k.Position < Top || k.Position > Bottom {
		return "knob?" + side
	}
	return "knob" + positionLetters[k.Position] + side
}

// ParseKnob parses names like "knobTL" or "knobBR".
func ParseKnob(s string) (Knob, error) {
	rest, ok := strings.CutPrefix(s, "knob")
	if !ok || len(rest) != 2 {
		return Knob{}, fmt.Errorf("invalid knob %q", s)
	}
	var k Knob
	switch rest[0] {
	case 'T':
		k.Position = Top
	case 'C':
		k.Position = Center
	case 'B':
		k.Position = Bottom
	default:
		return Knob{}, fmt.Errorf("invalid knob position in %q", s)
	}
	switch rest[1] {
	case 'L':
		k.Side = Left
	case 'R':
		k.Side = Right
	default:
		return Knob{}, fmt.Errorf("invalid knob side in %q", s)
	}
	return k, nil
}

// Button returns the protocol button id of the knob.
func (k Knob) Button() byte {
	return protocol.ButtonKnobTL + byte(k.Side)*3 + byte(k.Position)
}

// KnobFromButton maps a protocol button id to a knob.
func KnobFromButton(id byte) (Knob, bool) {
	if id < protocol.ButtonKnobTL || id > protocol.ButtonKnobBR {
		return Knob{}, false
	}
	n := id - protocol.ButtonKnobTL
	return Knob{Side: Side(n / 3), Position: Position(n % 3)}, true
}

// PageFromButton maps a protocol button id to a round page button index.
func PageFromButton(id byte) (int, bool) {
	if id < protocol.ButtonPage0 || id >= protocol.ButtonPage0+protocol.PageButtons {
		return 0, false
	}
	return int(id - protocol.ButtonPage0), true
}

// PageButton returns the protocol button id of round button i.
func PageButton(i int) byte {
	return protocol.ButtonPage0 + byte(i)
}

// EventKind enumerates device events.
type EventKind int

const (
	EventConnect EventKind = iota
	EventDisconnect
	EventDown
	EventUp
	EventRotate
	EventTouchStart
	EventTouchMove
	EventTouchEnd
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventDown:
		return "down"
	case EventUp:
		return "up"
	case EventRotate:
		return "rotate"
	case EventTouchStart:
		return "touchstart"
	case EventTouchMove:
		return "touchmove"
	case EventTouchEnd:
		return "touchend"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Touch is one finger on the glass. Key is the touched key index on the
// center display, or -1 when the touch is on a strip.
type Touch struct {
	ID   byte
	X, Y int
	Key  int
}

// NewTouch locates a touch.
func NewTouch(id byte, x, y int) Touch {
	_, key := protocol.Locate(x, y)
	return Touch{ID: id, X: x, Y: y, Key: key}
}

// OnKey reports whether the touch targets a key.
func (t Touch) OnKey() bool {
	return t.Key >= 0
}

// Event is one input or lifecycle notification.
type Event struct {
	Kind   EventKind
	Button byte // down, up, rotate
	Delta  int  // rotate

	// Changed holds the touches this event is about; Touches all touches
	// still on the glass after it.
	Changed []Touch
	Touches []Touch
}

// Knob reports the knob a button or rotate event refers to.
func (e Event) Knob() (Knob, bool) {
	if e.Kind != EventDown && e.Kind != EventUp && e.Kind != EventRotate {
		return Knob{}, false
	}
	return KnobFromButton(e.Button)
}

// Page reports the round page button a down/up event refers to.
func (e Event) Page() (int, bool) {
	if e.Kind != EventDown && e.Kind != EventUp {
		return 0, false
	}
	return PageFromButton(e.Button)
}

func (e Event) String() string {
	switch e.Kind {
	case EventDown, EventUp:
		if p, ok := e.Page(); ok {
			return fmt.Sprintf("%s page %d", e.Kind, p)
		}
		if k, ok := e.Knob(); ok {
			return fmt.Sprintf("%s %s", e.Kind, k)
		}
		return fmt.Sprintf("%s 0x%02x", e.Kind, e.Button)
	case EventRotate:
		k, _ := e.Knob()
		return fmt.Sprintf("rotate %s %+d", k, e.Delta)
	case EventTouchStart, EventTouchMove, EventTouchEnd:
		return fmt.Sprintf("%s changed=%d active=%d", e.Kind, len(e.Changed), len(e.Touches))
	default:
		return e.Kind.String()
	}
}
