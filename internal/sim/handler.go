package sim

import (
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/xpdeck/xpdeck/internal/logging"
	"github.com/xpdeck/xpdeck/internal/protocol"
)

// Result is the outcome of one host packet.
type Result struct {
	// Reply is sent back to the host, nil if none.
	Reply []byte
	// Changed is set when the panel looks different afterwards.
	Changed bool
}

// HandleMessage decodes one packet from the host and applies it to hw.
func HandleMessage(hw *Hardware, remoteAddr string, data []byte) (Result, error) {
	p, err := protocol.ParsePacket(data)
	if err != nil {
		logging.Warn("Malformed packet",
			zap.String("remote_addr", remoteAddr),
			zap.Int("length", len(data)),
			zap.String("hex", hex.EncodeToString(data)),
		)
		return Result{}, err
	}
	logging.LogPacket("received", byte(p.Command), p.Payload)

	msg, err := p.ParseMessage()
	if err != nil {
		logging.Error("Failed to parse packet payload",
			zap.String("remote_addr", remoteAddr),
			zap.String("packet", p.String()),
			zap.Error(err),
		)
		return Result{}, err
	}

	switch m := msg.(type) {
	case *protocol.InfoMessage:
		return handleInfo(remoteAddr, p.Transaction, m), nil

	case *protocol.UnknownMessage:
		logging.Warn("Unhandled command",
			zap.String("remote_addr", remoteAddr),
			zap.String("message", m.String()),
		)
		return Result{}, nil

	case *protocol.ButtonMessage, *protocol.RotateMessage, *protocol.TouchMessage:
		// input travels the other way
		logging.Debug("Ignoring input packet from host",
			zap.String("remote_addr", remoteAddr),
			zap.String("message", msg.String()),
		)
		return Result{}, nil
	}

	changed := hw.Apply(msg)
	if _, ok := msg.(*protocol.FramebufferMessage); !ok {
		logging.Debug("Applied host command",
			zap.String("remote_addr", remoteAddr),
			zap.String("message", msg.String()),
		)
	}
	return Result{Changed: changed}, nil
}

// handleInfo answers SERIAL and VERSION requests.
func handleInfo(remoteAddr string, tx byte, m *protocol.InfoMessage) Result {
	if m.Value != "" {
		return Result{}
	}
	value := Serial
	if m.Cmd == protocol.CmdVersion {
		value = FirmwareVersion
	}
	logging.Info("Answering info request",
		zap.String("remote_addr", remoteAddr),
		zap.Stringer("command", m.Cmd),
		zap.String("value", value),
	)
	return Result{Reply: protocol.BuildInfo(tx, m.Cmd, value)}
}
