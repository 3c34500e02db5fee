package panel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xpdeck/xpdeck/internal/canvas"
	"github.com/xpdeck/xpdeck/internal/device"
	"github.com/xpdeck/xpdeck/internal/gauge"
	"github.com/xpdeck/xpdeck/internal/logging"
	"github.com/xpdeck/xpdeck/internal/profile"
	"github.com/xpdeck/xpdeck/internal/protocol"
)

const (
	// HighlightDuration is how long a knob cell stays lit after input.
	HighlightDuration = 200 * time.Millisecond

	// DefaultRateHz is the per-subscription telemetry rate.
	DefaultRateHz = 30

	// DefaultRetryDelay is the pause before failed subscriptions are tried
	// again.
	DefaultRetryDelay = 5 * time.Second

	// queued samples and timer expirations ahead of the loop
	inboxSize = 256
)

type sampleMsg struct {
	binding Binding
	value   float64
}

type expiryMsg struct {
	knob device.Knob
	id   uint64
}

// Controller runs the event loop that owns State.
type Controller struct {
	state     *State
	telemetry Telemetry
	clock     Clock
	rateHz    float64

	samples chan sampleMsg
	expired chan expiryMsg
	stop    chan struct{} // closed when Run returns

	dev        Device
	registered bool
	nextTimer  uint64

	retryDelay time.Duration

	// pending holds bindings not yet subscribed; subscribing is set while
	// a goroutine works through them.
	subMu       sync.Mutex
	pending     []Binding
	subscribing bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the system clock used for highlight timers.
func WithClock(c Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithRate sets the telemetry rate requested per subscription.
func WithRate(hz float64) Option {
	return func(ctl *Controller) {
		if hz > 0 {
			ctl.rateHz = hz
		}
	}
}

// WithRetryDelay sets the pause between attempts to subscribe bindings
// that failed, typically because X-Plane is not running yet.
func WithRetryDelay(d time.Duration) Option {
	return func(ctl *Controller) {
		if d > 0 {
			ctl.retryDelay = d
		}
	}
}

// New creates a controller for a profile. telemetry may be nil, in which
// case gauges show placeholders and actions only log.
func New(p *profile.Profile, telemetry Telemetry, opts ...Option) *Controller {
	c := &Controller{
		state:      NewState(p),
		telemetry:  telemetry,
		clock:      systemClock{},
		rateHz:     DefaultRateHz,
		retryDelay: DefaultRetryDelay,
		samples:    make(chan sampleMsg, inboxSize),
		expired:    make(chan expiryMsg, inboxSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State exposes the runtime state for inspection. Only read it from the
// goroutine running Run, or after Run has returned.
func (c *Controller) State() *State { return c.state }

// Run drives dev until its event stream closes or ctx is done. State
// survives between runs, so a reconnected device picks up the same page.
// Run must not be called concurrently.
func (c *Controller) Run(ctx context.Context, dev Device) error {
	c.dev = dev
	c.stop = make(chan struct{})
	defer func() {
		c.state.stopTimers()
		close(c.stop)
		c.dev = nil
	}()

	events := dev.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.handle(ctx, ev)
			if ev.Kind == device.EventDisconnect {
				logging.Info("Device disconnected")
			}

		case m := <-c.samples:
			c.sample(m)

		case m := <-c.expired:
			c.expire(m)
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev device.Event) {
	switch ev.Kind {
	case device.EventConnect:
		c.connect(ctx)

	case device.EventDown:
		if p, ok := ev.Page(); ok {
			c.switchPage(p)
			return
		}
		if k, ok := ev.Knob(); ok {
			c.takeAction(ctx, c.knob(k), profile.ActionPressed, false)
		}

	case device.EventRotate:
		k, ok := ev.Knob()
		if !ok {
			return
		}
		kind := profile.ActionDec
		if ev.Delta > 0 {
			kind = profile.ActionInc
		}
		c.takeAction(ctx, c.knob(k), kind, false)

	case device.EventTouchStart:
		c.touchStart(ctx, ev)

	case device.EventTouchMove:
		c.releaseStale(ev.Touches)

	case device.EventTouchEnd:
		c.touchEnd(ev)

	case device.EventUp, device.EventDisconnect:
	}
}

// connect sets the page button colours, registers the gauge bindings on
// the first connection, resumes any unfinished subscriptions and paints
// the active page.
func (c *Controller) connect(ctx context.Context) {
	for i, page := range c.state.profile.Pages {
		if i >= protocol.PageButtons {
			break
		}
		if err := c.dev.SetButtonColor(i, page.AccentColor()); err != nil {
			logging.Warn("Failed to set button colour", zap.Int("page", i), zap.Error(err))
		}
	}
	if !c.registered {
		c.registered = true
		c.subMu.Lock()
		c.pending = c.state.RegisterAll()
		c.subMu.Unlock()
	}
	c.subscribe(ctx)
	c.loadPage()
}

// subscribe works through the pending bindings in the background, retrying
// failures every retryDelay until all succeed or ctx is done. Lookups fail
// while the simulator is still starting. Bindings left when ctx ends are
// picked up by the next connect.
func (c *Controller) subscribe(ctx context.Context) {
	if c.telemetry == nil {
		return
	}
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.subscribing || len(c.pending) == 0 {
		return
	}
	c.subscribing = true
	go c.subscribeLoop(ctx)
}

func (c *Controller) subscribeLoop(ctx context.Context) {
	for {
		c.subMu.Lock()
		batch := c.pending
		c.subMu.Unlock()

		var failed []Binding
		for i, b := range batch {
			if ctx.Err() != nil {
				failed = append(failed, batch[i:]...)
				break
			}
			err := c.telemetry.Subscribe(ctx, b.Dataref, c.rateHz, func(v float64) {
				c.post(sampleMsg{binding: b, value: v})
			})
			if err != nil {
				if ctx.Err() == nil {
					logging.Warn("Failed to subscribe",
						zap.String("dataref", b.Dataref),
						zap.Int("page", b.Page),
						zap.Int("key", b.Key),
						zap.Error(err),
					)
				}
				failed = append(failed, b)
			}
		}

		c.subMu.Lock()
		c.pending = failed
		if len(failed) == 0 || ctx.Err() != nil {
			c.subscribing = false
			c.subMu.Unlock()
			return
		}
		c.subMu.Unlock()

		logging.Info("Retrying subscriptions",
			zap.Int("pending", len(failed)),
			zap.Duration("delay", c.retryDelay),
		)
		select {
		case <-ctx.Done():
			c.subMu.Lock()
			c.subscribing = false
			c.subMu.Unlock()
			return
		case <-time.After(c.retryDelay):
		}
	}
}

// retrying reports whether a subscriber goroutine is running.
func (c *Controller) retrying() bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return c.subscribing
}

// post hands a sample to the loop. Samples are dropped when the loop is
// not keeping up; the next one replaces them anyway.
func (c *Controller) post(m sampleMsg) {
	select {
	case c.samples <- m:
	default:
		logging.Debug("Dropping sample", zap.String("dataref", m.binding.Dataref))
	}
}

func (c *Controller) sample(m sampleMsg) {
	logging.LogSample(m.binding.Dataref, m.value)
	if c.state.Sample(m.binding, m.value) && c.dev != nil {
		c.paintGauge(m.binding.Key)
	}
}

func (c *Controller) switchPage(i int) {
	from := c.state.CurrentIndex()
	if !c.state.SwitchTo(i) {
		logging.Debug("Ignoring page button", zap.Int("page", i), zap.Int("pages", c.state.PageCount()))
		return
	}
	logging.LogPageSwitch(from, i, c.state.CurrentPage().Name)
	c.loadPage()
}

// loadPage resets the active page's gauges and repaints everything.
func (c *Controller) loadPage() {
	c.state.ResetPage(c.state.CurrentIndex())
	c.paintStrip(device.Left, [profile.SideSlots]bool{})
	c.paintStrip(device.Right, [profile.SideSlots]bool{})
	for i := 0; i < profile.KeyCount; i++ {
		if c.state.KeyConfig(i).IsGauge() {
			c.paintGauge(i)
		} else {
			c.paintKey(i, false)
		}
	}
}

func (c *Controller) paintKey(i int, pressed bool) {
	key := c.state.KeyConfig(i)
	if key.IsGauge() {
		return
	}
	c.draw(i, func(cv canvas.Canvas) { gauge.PaintKey(cv, key, pressed) })
}

func (c *Controller) paintGauge(i int) {
	key := c.state.KeyConfig(i)
	if !key.IsGauge() {
		return
	}
	values := c.state.Values(c.state.CurrentIndex(), i)
	if values == nil {
		values = gauge.Placeholder(len(key.Display.Sources))
	}
	c.draw(i, func(cv canvas.Canvas) { gauge.Draw(cv, key.Display, values) })
}

func (c *Controller) draw(i int, paint canvas.Painter) {
	if err := c.dev.DrawKey(i, paint); err != nil {
		logging.Warn("Failed to draw key", zap.Int("key", i), zap.Error(err))
	}
}

func (c *Controller) paintStrip(side device.Side, highlight [profile.SideSlots]bool) {
	slots, _ := c.state.Side(side)
	accent := c.state.CurrentPage().AccentColor()
	d := protocol.DisplayLeft
	if side == device.Right {
		d = protocol.DisplayRight
	}
	err := c.dev.DrawScreen(d, func(cv canvas.Canvas) {
		gauge.PaintStrip(cv, slots, highlight, accent)
	})
	if err != nil {
		logging.Warn("Failed to draw strip", zap.Stringer("side", side), zap.Error(err))
	}
}
