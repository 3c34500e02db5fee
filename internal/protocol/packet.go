package protocol

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Command identifies the packet type.
type Command byte

// Commands (from the Loupedeck Live firmware)
const (
	CmdButtonPress   Command = 0x00
	CmdKnobRotate    Command = 0x01
	CmdSetColor      Command = 0x02
	CmdSerial        Command = 0x03
	CmdReset         Command = 0x06
	CmdVersion       Command = 0x07
	CmdSetBrightness Command = 0x09
	CmdMCU           Command = 0x0d
	CmdDraw          Command = 0x0f
	CmdFramebuffer   Command = 0x10
	CmdSetVibration  Command = 0x1b
	CmdTouch         Command = 0x4d
	CmdTouchEnd      Command = 0x6d
)

// HeaderSize is the number of bytes before the payload.
const HeaderSize = 3

// ErrShortPacket is returned for packets without a complete header.
var ErrShortPacket = errors.New("packet too short")

// String returns the command name used in logs.
func (c Command) String() string {
	switch c {
	case CmdButtonPress:
		return "BUTTON_PRESS"
	case CmdKnobRotate:
		return "KNOB_ROTATE"
	case CmdSetColor:
		return "SET_COLOR"
	case CmdSerial:
		return "SERIAL"
	case CmdReset:
		return "RESET"
	case CmdVersion:
		return "VERSION"
	case CmdSetBrightness:
		return "SET_BRIGHTNESS"
	case CmdMCU:
		return "MCU"
	case CmdDraw:
		return "DRAW"
	case CmdFramebuffer:
		return "FRAMEBUFF"
	case CmdSetVibration:
		return "SET_VIBRATION"
	case CmdTouch:
		return "TOUCH"
	case CmdTouchEnd:
		return "TOUCH_END"
	default:
		return fmt.Sprintf("unknown(0x%02X)", byte(c))
	}
}

// Packet is one decoded WebSocket message.
type Packet struct {
	Length      byte // as sent; saturates at 0xff
	Command     Command
	Transaction byte
	Payload     []byte
	Raw         []byte // original bytes for debugging
}

// ParsePacket splits a WebSocket message into header and payload. The
// payload aliases data.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes (minimum %d)", ErrShortPacket, len(data), HeaderSize)
	}
	return &Packet{
		Length:      data[0],
		Command:     Command(data[1]),
		Transaction: data[2],
		Payload:     data[HeaderSize:],
		Raw:         data,
	}, nil
}

// String returns a debug representation of the packet.
func (p *Packet) String() string {
	return fmt.Sprintf("Packet{cmd=%s, tx=%d, len=%d}", p.Command, p.Transaction, len(p.Payload))
}

// BuildPacket prefixes payload with the packet header.
func BuildPacket(cmd Command, tx byte, payload []byte) []byte {
	pkt := make([]byte, HeaderSize+len(payload))
	pkt[0] = byte(min(HeaderSize+len(payload), 0xff))
	pkt[1] = byte(cmd)
	pkt[2] = tx
	copy(pkt[HeaderSize:], payload)
	return pkt
}

// TxCounter hands out transaction ids 1..255, wrapping past 0. The zero
// value is ready to use.
type TxCounter struct {
	n atomic.Uint32
}

// Next returns the next transaction id.
func (c *TxCounter) Next() byte {
	for {
		if tx := byte(c.n.Add(1)); tx != 0 {
			return tx
		}
	}
}
