package protocol

import (
	"encoding/binary"
	"fmt"
)

// Button ids shared by BUTTON_PRESS, KNOB_ROTATE and SET_COLOR.
const (
	ButtonKnobTL byte = 0x01
	ButtonKnobCL byte = 0x02
	ButtonKnobBL byte = 0x03
	ButtonKnobTR byte = 0x04
	ButtonKnobCR byte = 0x05
	ButtonKnobBR byte = 0x06
	ButtonPage0  byte = 0x07 // round buttons 0..7 follow
	PageButtons       = 8
)

// VibrateRevFastest is the short haptic pattern used for key presses.
const VibrateRevFastest byte = 0x63

// Message is a decoded packet payload.
type Message interface {
	Command() Command
	String() string
}

// ButtonMessage reports a knob click or round button press/release.
type ButtonMessage struct {
	Button byte
	Down   bool
}

func (m *ButtonMessage) Command() Command { return CmdButtonPress }

func (m *ButtonMessage) String() string {
	state := "up"
	if m.Down {
		state = "down"
	}
	return fmt.Sprintf("Button{id=0x%02x, %s}", m.Button, state)
}

// RotateMessage reports a knob turn. Delta is positive clockwise.
type RotateMessage struct {
	Button byte
	Delta  int8
}

func (m *RotateMessage) Command() Command { return CmdKnobRotate }

func (m *RotateMessage) String() string {
	return fmt.Sprintf("Rotate{id=0x%02x, delta=%d}", m.Button, m.Delta)
}

// TouchMessage reports a touch start/move or, with End set, its release.
// Coordinates cover the whole 480x270 glass.
type TouchMessage struct {
	X, Y uint16
	ID   byte
	End  bool
}

func (m *TouchMessage) Command() Command {
	if m.End {
		return CmdTouchEnd
	}
	return CmdTouch
}

func (m *TouchMessage) String() string {
	return fmt.Sprintf("Touch{id=%d, x=%d, y=%d, end=%v}", m.ID, m.X, m.Y, m.End)
}

// InfoMessage is a SERIAL or VERSION packet. An empty Value is a request.
type InfoMessage struct {
	Cmd   Command
	Value string
}

func (m *InfoMessage) Command() Command { return m.Cmd }

func (m *InfoMessage) String() string {
	return fmt.Sprintf("%s{%q}", m.Cmd, m.Value)
}

// SetColorMessage sets a round button's LED colour.
type SetColorMessage struct {
	Button  byte
	R, G, B byte
}

func (m *SetColorMessage) Command() Command { return CmdSetColor }

func (m *SetColorMessage) String() string {
	return fmt.Sprintf("SetColor{id=0x%02x, #%02x%02x%02x}", m.Button, m.R, m.G, m.B)
}

// ByteMessage carries a single-byte argument: brightness or vibration.
type ByteMessage struct {
	Cmd   Command
	Value byte
}

func (m *ByteMessage) Command() Command { return m.Cmd }

func (m *ByteMessage) String() string {
	return fmt.Sprintf("%s{0x%02x}", m.Cmd, m.Value)
}

// FramebufferMessage writes a rectangle of RGB565 pixels to a display's
// back buffer.
type FramebufferMessage struct {
	Display    Display
	X, Y, W, H int
	Pixels     []byte
}

func (m *FramebufferMessage) Command() Command { return CmdFramebuffer }

func (m *FramebufferMessage) String() string {
	return fmt.Sprintf("Framebuffer{display=%s, x=%d, y=%d, %dx%d}", m.Display, m.X, m.Y, m.W, m.H)
}

// DrawMessage flushes a display's back buffer.
type DrawMessage struct {
	Display Display
}

func (m *DrawMessage) Command() Command { return CmdDraw }

func (m *DrawMessage) String() string {
	return fmt.Sprintf("Draw{display=%s}", m.Display)
}

// UnknownMessage - fallback for commands without a decoder
type UnknownMessage struct {
	Cmd  Command
	Data []byte
}

func (m *UnknownMessage) Command() Command { return m.Cmd }

func (m *UnknownMessage) String() string {
	return fmt.Sprintf("Unknown{cmd=%s, len=%d}", m.Cmd, len(m.Data))
}

// ParseMessage decodes the payload according to the packet command.
func (p *Packet) ParseMessage() (Message, error) {
	data := p.Payload
	switch p.Command {
	case CmdButtonPress:
		if err := need(p, 2); err != nil {
			return nil, err
		}
		return &ButtonMessage{Button: data[0], Down: data[1] == 0x00}, nil

	case CmdKnobRotate:
		if err := need(p, 2); err != nil {
			return nil, err
		}
		return &RotateMessage{Button: data[0], Delta: int8(data[1])}, nil

	case CmdTouch, CmdTouchEnd:
		if err := need(p, 6); err != nil {
			return nil, err
		}
		return &TouchMessage{
			X:   binary.BigEndian.Uint16(data[1:3]),
			Y:   binary.BigEndian.Uint16(data[3:5]),
			ID:  data[5],
			End: p.Command == CmdTouchEnd,
		}, nil

	case CmdSerial:
		return &InfoMessage{Cmd: p.Command, Value: string(data)}, nil

	case CmdVersion:
		msg := &InfoMessage{Cmd: p.Command}
		if len(data) >= 3 {
			msg.Value = fmt.Sprintf("%d.%d.%d", data[0], data[1], data[2])
		}
		return msg, nil

	case CmdSetColor:
		if err := need(p, 4); err != nil {
			return nil, err
		}
		return &SetColorMessage{Button: data[0], R: data[1], G: data[2], B: data[3]}, nil

	case CmdSetBrightness, CmdSetVibration:
		if err := need(p, 1); err != nil {
			return nil, err
		}
		return &ByteMessage{Cmd: p.Command, Value: data[0]}, nil

	case CmdFramebuffer:
		if err := need(p, 10); err != nil {
			return nil, err
		}
		d, err := displayFromID(data[0:2])
		if err != nil {
			return nil, err
		}
		msg := &FramebufferMessage{
			Display: d,
			X:       int(binary.BigEndian.Uint16(data[2:4])),
			Y:       int(binary.BigEndian.Uint16(data[4:6])),
			W:       int(binary.BigEndian.Uint16(data[6:8])),
			H:       int(binary.BigEndian.Uint16(data[8:10])),
			Pixels:  data[10:],
		}
		if want := msg.W * msg.H * 2; len(msg.Pixels) != want {
			return nil, fmt.Errorf("framebuffer %dx%d: got %d pixel bytes, want %d", msg.W, msg.H, len(msg.Pixels), want)
		}
		return msg, nil

	case CmdDraw:
		if err := need(p, 2); err != nil {
			return nil, err
		}
		d, err := displayFromID(data[0:2])
		if err != nil {
			return nil, err
		}
		return &DrawMessage{Display: d}, nil

	default:
		return &UnknownMessage{Cmd: p.Command, Data: data}, nil
	}
}

func need(p *Packet, n int) error {
	if len(p.Payload) < n {
		return fmt.Errorf("%s payload too short: %d bytes (minimum %d)", p.Command, len(p.Payload), n)
	}
	return nil
}
