package panel

import (
	"context"

	"go.uber.org/zap"

	"github.com/xpdeck/xpdeck/internal/device"
	"github.com/xpdeck/xpdeck/internal/gauge"
	"github.com/xpdeck/xpdeck/internal/logging"
	"github.com/xpdeck/xpdeck/internal/profile"
	"github.com/xpdeck/xpdeck/internal/protocol"
)

// knob lights the knob's cell and returns the slot bound to it. Sides the
// active page does not configure are ignored. Only the first event in a
// highlight window starts a clear timer.
func (c *Controller) knob(k device.Knob) *profile.Key {
	slots, ok := c.state.Side(k.Side)
	if !ok {
		return nil
	}
	pos := int(k.Position)
	c.paintStrip(k.Side, gauge.Highlight(pos))

	if !c.state.Highlighted(k) {
		c.nextTimer++
		id := c.nextTimer
		stop := c.stop
		t := c.clock.AfterFunc(HighlightDuration, func() {
			// waits for the loop rather than dropping, or a full inbox
			// would leave the cell lit until the next input
			select {
			case c.expired <- expiryMsg{knob: k, id: id}:
			case <-stop:
			}
		})
		c.state.highlighted[k] = highlight{timer: t, id: id}
	}

	if pos >= len(slots) {
		return nil
	}
	return slots[pos]
}

// expire clears a knob highlight. A timer that was cancelled or replaced
// in the meantime is ignored.
func (c *Controller) expire(m expiryMsg) {
	h, ok := c.state.highlighted[m.knob]
	if !ok || h.id != m.id {
		return
	}
	delete(c.state.highlighted, m.knob)
	if c.dev != nil {
		c.paintStrip(m.knob.Side, [profile.SideSlots]bool{})
	}
}

// takeAction sends the key's action of the given kind, with a haptic pulse
// when requested.
func (c *Controller) takeAction(ctx context.Context, key *profile.Key, kind profile.ActionKind, haptic bool) {
	action := key.Action(kind)
	if action == nil {
		return
	}
	if action.Command != "" {
		logging.LogCommand(action.Command, haptic)
		if c.telemetry != nil {
			if err := c.telemetry.SendCommand(ctx, action.Command); err != nil {
				logging.Warn("Failed to send command", zap.String("command", action.Command), zap.Error(err))
			}
		}
	}
	if haptic {
		if err := c.dev.Vibrate(protocol.VibrateRevFastest); err != nil {
			logging.Warn("Failed to vibrate", zap.Error(err))
		}
	}
}

func (c *Controller) touchStart(ctx context.Context, ev device.Event) {
	c.releaseStale(ev.Touches)
	if len(ev.Changed) == 0 {
		return
	}
	t := ev.Changed[0]
	if !t.OnKey() {
		return
	}
	key := c.state.KeyConfig(t.Key)
	// display-only gauges are not pressable
	if key.IsGauge() && key.Pressed == nil {
		return
	}
	c.state.pressed[t.Key] = true
	if key == nil {
		return
	}
	c.paintKey(t.Key, true)
	c.takeAction(ctx, key, profile.ActionPressed, true)
}

func (c *Controller) touchEnd(ev device.Event) {
	released := c.releaseStale(ev.Touches)
	if len(ev.Changed) == 0 {
		return
	}
	t := ev.Changed[0]
	if !t.OnKey() {
		return
	}
	delete(c.state.pressed, t.Key)
	if released[t.Key] || c.state.KeyConfig(t.Key) == nil {
		return
	}
	c.paintKey(t.Key, false)
}

// releaseStale releases every pressed key no active touch rests on and
// returns the keys it released.
func (c *Controller) releaseStale(active []device.Touch) map[int]bool {
	held := make(map[int]bool, len(active))
	for _, t := range active {
		if t.OnKey() {
			held[t.Key] = true
		}
	}
	released := make(map[int]bool)
	for _, i := range c.state.PressedKeys() {
		if held[i] {
			continue
		}
		delete(c.state.pressed, i)
		released[i] = true
		if c.state.KeyConfig(i) != nil {
			c.paintKey(i, false)
		}
	}
	return released
}
