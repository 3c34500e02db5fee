// Package sim is a simulated Loupedeck Live for working without the
// hardware.
//
// The simulator speaks the same WebSocket protocol as the device: it
// accepts FRAMEBUFF/DRAW, SET_COLOR, SET_BRIGHTNESS and SET_VIBRATION from
// the host, answers SERIAL and VERSION, and sends button, knob and touch
// packets back. With Advertise set it registers itself on mDNS as
// _xpdeck._tcp so the discovery scanner finds it like a real panel.
//
// # Front panel
//
// RunFrontPanel draws the glass in the terminal with half blocks and maps
// the keyboard onto the controls:
//
//	1-8             round page buttons
//	tab, shift+tab  select a knob
//	left, right     turn the selected knob
//	enter           click the selected knob
//	q w e r         touch keys 0-3
//	a s d f         touch keys 4-7
//	z x c v         touch keys 8-11
//
// # Packet capture
//
// With CaptureDir set every packet in both directions is appended to
// capture-<timestamp>.jsonl, one JSON object per line. ReadCapture loads
// such a file and PacketRecord.Decode turns each line back into a message.
package sim
