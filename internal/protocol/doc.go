// Package protocol implements the Loupedeck Live packet format.
//
// The device exposes a WebSocket endpoint and exchanges one binary packet
// per WebSocket message in both directions.
//
// # Packet Layout
//
//	[0]   length       min(3+len(payload), 0xff)
//	[1]   command      see the Cmd* constants
//	[2]   transaction  1..255, never 0
//	[3+]  payload
//
// The length byte saturates, so framebuffer packets carry 0xff there and
// receivers rely on the WebSocket message boundary instead.
//
// # Device to Host
//
//   - BUTTON_PRESS (0x00): [button, state] with state 0x00 meaning down
//   - KNOB_ROTATE (0x01): [button, delta] with delta a signed byte
//   - TOUCH (0x4d), TOUCH_END (0x6d): [0x00, x BE16, y BE16, touch id]
//   - SERIAL (0x03), VERSION (0x07): replies to the matching request
//
// # Host to Device
//
//   - SET_COLOR (0x02): [button, r, g, b]
//   - SET_BRIGHTNESS (0x09): [level]
//   - SET_VIBRATION (0x1b): [pattern]
//   - FRAMEBUFF (0x10): [display id BE16, x, y, w, h as BE16, RGB565 LE pixels]
//   - DRAW (0x0f): [display id BE16], pushes the framebuffer to the panel
//
// # Usage Example
//
//	var tx protocol.TxCounter
//	pkt := protocol.BuildSetColor(tx.Next(), protocol.ButtonPage0, 0xff, 0, 0)
//	err := conn.WriteMessage(websocket.BinaryMessage, pkt)
//
//	p, err := protocol.ParsePacket(data)
//	msg, err := p.ParseMessage()
//	switch m := msg.(type) {
//	case *protocol.ButtonMessage:
//	    ...
//	}
//
// Parsing and construction are stateless and safe for concurrent use.
// TxCounter uses atomic operations.
package protocol
