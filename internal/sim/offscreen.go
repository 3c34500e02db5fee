package sim

import (
	"fmt"

	"github.com/xpdeck/xpdeck/internal/canvas"
	"github.com/xpdeck/xpdeck/internal/device"
	"github.com/xpdeck/xpdeck/internal/protocol"
	"github.com/xpdeck/xpdeck/internal/raster"
)

// Offscreen is a panel without a connection: drawing goes straight into
// a Hardware. It replays a fixed list of events and then closes the event
// stream, which lets a controller render pages to images.
type Offscreen struct {
	hw     *Hardware
	events chan device.Event
}

// NewOffscreen queues events for delivery to whoever reads Events.
func NewOffscreen(hw *Hardware, events ...device.Event) *Offscreen {
	ch := make(chan device.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &Offscreen{hw: hw, events: ch}
}

// Hardware returns the panel being drawn on.
func (o *Offscreen) Hardware() *Hardware { return o.hw }

// DrawKey paints key i of the center display.
func (o *Offscreen) DrawKey(i int, paint canvas.Painter) error {
	if i < 0 || i >= protocol.KeyColumns*protocol.KeyRows {
		return fmt.Errorf("key %d out of range", i)
	}
	s := raster.New(protocol.KeySize, protocol.KeySize)
	paint(s)
	x, y := protocol.KeyOrigin(i)
	o.hw.blit(protocol.DisplayCenter, x, y, s.Image())
	return nil
}

// DrawScreen paints a whole display.
func (o *Offscreen) DrawScreen(d protocol.Display, paint canvas.Painter) error {
	if d > protocol.DisplayRight {
		return fmt.Errorf("unknown %s", d)
	}
	s := raster.New(d.Size())
	paint(s)
	o.hw.blit(d, 0, 0, s.Image())
	return nil
}

// SetButtonColor sets the LED of round button i.
func (o *Offscreen) SetButtonColor(i int, color string) error {
	c, ok := raster.ParseColor(color)
	if !ok {
		return fmt.Errorf("invalid colour %q", color)
	}
	o.hw.setButton(i, c)
	return nil
}

// Vibrate records the haptic pattern.
func (o *Offscreen) Vibrate(pattern byte) error {
	o.hw.vibrate(pattern)
	return nil
}

// Events returns the queued events.
func (o *Offscreen) Events() <-chan device.Event { return o.events }

// Close does nothing.
func (o *Offscreen) Close() error { return nil }
