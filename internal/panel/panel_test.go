package panel

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/xpdeck/xpdeck/internal/canvas"
	"github.com/xpdeck/xpdeck/internal/device"
	"github.com/xpdeck/xpdeck/internal/profile"
	"github.com/xpdeck/xpdeck/internal/protocol"
)

// drawCall is one paint issued to the fake device. Key is -1 for strips.
type drawCall struct {
	Key     int
	Display protocol.Display
	Rec     *canvas.Recorder
}

// pressed reports whether a key was painted in the pressed style.
func (d drawCall) pressed() bool {
	fills := d.Rec.Calls("FillRect")
	return len(fills) > 0 && fills[0].Fill == "white"
}

// lit returns the highlight mask of a strip paint.
func (d drawCall) lit(accent string) [profile.SideSlots]bool {
	var mask [profile.SideSlots]bool
	fills := d.Rec.Calls("FillRect")
	cell := 0
	for _, op := range fills {
		// cell backgrounds span the full strip width
		if op.Args[0] != 0 || cell >= profile.SideSlots {
			continue
		}
		mask[cell] = op.Fill == accent
		cell++
	}
	return mask
}

type fakeDevice struct {
	draws   []drawCall
	colors  map[int]string
	vibes   []byte
	events  chan device.Event
	drawErr error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{colors: make(map[int]string), events: make(chan device.Event, 16)}
}

func (f *fakeDevice) DrawKey(i int, paint canvas.Painter) error {
	r := canvas.NewRecorder(protocol.KeySize, protocol.KeySize)
	paint(r)
	f.draws = append(f.draws, drawCall{Key: i, Display: protocol.DisplayCenter, Rec: r})
	return f.drawErr
}

func (f *fakeDevice) DrawScreen(d protocol.Display, paint canvas.Painter) error {
	w, h := d.Size()
	r := canvas.NewRecorder(w, h)
	paint(r)
	f.draws = append(f.draws, drawCall{Key: -1, Display: d, Rec: r})
	return f.drawErr
}

func (f *fakeDevice) SetButtonColor(i int, color string) error {
	f.colors[i] = color
	return nil
}

func (f *fakeDevice) Vibrate(pattern byte) error {
	f.vibes = append(f.vibes, pattern)
	return nil
}

func (f *fakeDevice) Events() <-chan device.Event { return f.events }
func (f *fakeDevice) Close() error                { return nil }

func (f *fakeDevice) keyDraws(i int) []drawCall {
	var out []drawCall
	for _, d := range f.draws {
		if d.Key == i {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeDevice) stripDraws(d protocol.Display) []drawCall {
	var out []drawCall
	for _, c := range f.draws {
		if c.Key < 0 && c.Display == d {
			out = append(out, c)
		}
	}
	return out
}

type fakeTelemetry struct {
	mu       sync.Mutex
	subs     map[string][]func(float64)
	order    []string
	commands []string
	failures int // Subscribe calls left to fail
	attempts int
}

func newFakeTelemetry() *fakeTelemetry {
	return &fakeTelemetry{subs: make(map[string][]func(float64))}
}

func (f *fakeTelemetry) Subscribe(_ context.Context, dataref string, _ float64, fn func(float64)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return errors.New("dataref lookup failed")
	}
	f.subs[dataref] = append(f.subs[dataref], fn)
	f.order = append(f.order, dataref)
	return nil
}

func (f *fakeTelemetry) SendCommand(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, name)
	return nil
}

func (f *fakeTelemetry) Close() error { return nil }

func (f *fakeTelemetry) subscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

func (f *fakeTelemetry) setFailures(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = n
}

func (f *fakeTelemetry) tries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeTelemetry) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

type fakeTimer struct {
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) Timer {
	t := &fakeTimer{f: f}
	c.timers = append(c.timers, t)
	return t
}

func action(cmd string) *profile.Action { return &profile.Action{Command: cmd} }

func ptr(f float64) *float64 { return &f }

func tag(s string) *string { return &s }

// testProfile has an autopilot page with a left strip, action keys on 3
// and 5 and a display-only gauge on 1, and an engine page with a text
// gauge on 0.
func testProfile() *profile.Profile {
	keys := make([]*profile.Key, profile.KeyCount)
	keys[1] = &profile.Key{Display: &profile.DisplaySpec{
		Type:    profile.GaugeMeter,
		Sources: []profile.Source{{Dataref: "sim/engine/n1", Index: 0}},
		Min:     ptr(0),
		Max:     ptr(100),
	}}
	keys[3] = &profile.Key{Label: profile.Label{Text: "AP"}, Pressed: action("sim/autopilot/servos_toggle")}
	keys[5] = &profile.Key{Label: profile.Label{Text: "FD"}, Pressed: action("sim/autopilot/fdir_toggle")}

	engine := make([]*profile.Key, profile.KeyCount)
	engine[0] = &profile.Key{Display: &profile.DisplaySpec{
		Type: profile.GaugeText,
		Sources: []profile.Source{
			{Dataref: "sim/engine/egt", Index: -1},
		},
		Tag: tag("EGT"),
	}}

	return &profile.Profile{Pages: []*profile.Page{
		{
			Name:  "autopilot",
			Color: "#00b4d8",
			Keys:  keys,
			Left: []*profile.Key{
				{Label: profile.Label{Text: "HDG"}, Inc: action("sim/autopilot/heading_up"), Dec: action("sim/autopilot/heading_down"), Pressed: action("sim/autopilot/heading_sync")},
				{Label: profile.Label{Text: "ALT"}},
			},
		},
		{Name: "engine", Keys: engine},
	}}
}

func newTestController(t *testing.T) (*Controller, *fakeDevice, *fakeTelemetry, *fakeClock) {
	t.Helper()
	dev := newFakeDevice()
	tel := newFakeTelemetry()
	clk := &fakeClock{}
	c := New(testProfile(), tel, WithClock(clk))
	c.dev = dev
	return c, dev, tel, clk
}

func touch(id byte, key int) device.Touch {
	return device.Touch{ID: id, Key: key}
}

func TestState_PageModel(t *testing.T) {
	s := NewState(testProfile())
	if s.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() = %d, want 0", s.CurrentIndex())
	}
	if got := s.KeyConfig(3); got == nil || got.Text != "AP" {
		t.Errorf("KeyConfig(3) = %+v", got)
	}
	for _, i := range []int{-1, 0, 12} {
		if got := s.KeyConfig(i); got != nil {
			t.Errorf("KeyConfig(%d) = %+v, want nil", i, got)
		}
	}
	if !s.SwitchTo(1) || s.CurrentIndex() != 1 {
		t.Errorf("SwitchTo(1) did not switch")
	}
	if _, ok := s.Side(device.Left); ok {
		t.Error("engine page reports a left strip")
	}

	empty := NewState(&profile.Profile{DefaultPage: 4})
	if empty.CurrentIndex() != 0 || empty.CurrentPage() == nil || empty.KeyConfig(0) != nil {
		t.Error("empty profile state is not an empty page")
	}
}

func TestState_DefaultPage(t *testing.T) {
	p := testProfile()
	p.DefaultPage = 1
	if got := NewState(p).CurrentIndex(); got != 1 {
		t.Errorf("CurrentIndex() = %d, want 1", got)
	}
	p.DefaultPage = 7
	if got := NewState(p).CurrentIndex(); got != 0 {
		t.Errorf("out-of-range default: CurrentIndex() = %d, want 0", got)
	}
}

func TestPageSwitch_OutOfRange(t *testing.T) {
	c, dev, _, _ := newTestController(t)
	ctx := context.Background()

	for _, button := range []int{2, 7} {
		c.handle(ctx, device.Event{Kind: device.EventDown, Button: device.PageButton(button)})
		if got := c.State().CurrentIndex(); got != 0 {
			t.Errorf("page button %d: CurrentIndex() = %d, want 0", button, got)
		}
	}
	if len(dev.draws) != 0 {
		t.Errorf("out-of-range page switch painted %d times", len(dev.draws))
	}

	c.handle(ctx, device.Event{Kind: device.EventDown, Button: device.PageButton(1)})
	if got := c.State().CurrentIndex(); got != 1 {
		t.Errorf("CurrentIndex() = %d, want 1", got)
	}
	// 12 keys and both strips
	if len(dev.draws) != profile.KeyCount+2 {
		t.Errorf("page switch painted %d times, want %d", len(dev.draws), profile.KeyCount+2)
	}
}

func TestTouch_StaleRelease(t *testing.T) {
	c, dev, tel, _ := newTestController(t)
	ctx := context.Background()

	c.handle(ctx, device.Event{Kind: device.EventTouchStart,
		Changed: []device.Touch{touch(1, 5)}, Touches: []device.Touch{touch(1, 5)}})
	c.handle(ctx, device.Event{Kind: device.EventTouchStart,
		Changed: []device.Touch{touch(2, 3)}, Touches: []device.Touch{touch(1, 5), touch(2, 3)}})

	before5 := len(dev.keyDraws(5))
	c.handle(ctx, device.Event{Kind: device.EventTouchEnd,
		Changed: []device.Touch{touch(2, 3)}, Touches: []device.Touch{touch(1, 5)}})

	if got := c.State().PressedKeys(); len(got) != 1 || got[0] != 5 {
		t.Errorf("PressedKeys() = %v, want [5]", got)
	}
	draws3 := dev.keyDraws(3)
	if len(draws3) != 2 || !draws3[0].pressed() || draws3[1].pressed() {
		t.Errorf("key 3 paints = %d, want pressed then released", len(draws3))
	}
	if got := len(dev.keyDraws(5)); got != before5 {
		t.Errorf("key 5 repainted on key 3 release")
	}

	want := []string{"sim/autopilot/fdir_toggle", "sim/autopilot/servos_toggle"}
	if got := tel.sent(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("commands = %v, want %v", got, want)
	}
	if len(dev.vibes) != 2 || dev.vibes[0] != protocol.VibrateRevFastest {
		t.Errorf("vibrations = %v, want two REV_FASTEST", dev.vibes)
	}
}

func TestTouch_MoveReleasesAbandonedKey(t *testing.T) {
	c, dev, _, _ := newTestController(t)
	ctx := context.Background()

	c.handle(ctx, device.Event{Kind: device.EventTouchStart,
		Changed: []device.Touch{touch(1, 3)}, Touches: []device.Touch{touch(1, 3)}})
	// finger slides off to the strip
	c.handle(ctx, device.Event{Kind: device.EventTouchMove,
		Changed: []device.Touch{touch(1, -1)}, Touches: []device.Touch{touch(1, -1)}})

	if got := c.State().PressedKeys(); len(got) != 0 {
		t.Errorf("PressedKeys() = %v, want none", got)
	}
	draws := dev.keyDraws(3)
	if len(draws) != 2 || draws[1].pressed() {
		t.Errorf("key 3 not repainted released")
	}
}

func TestTouch_EmptyAndGaugeKeys(t *testing.T) {
	c, dev, tel, _ := newTestController(t)
	ctx := context.Background()

	// display-only gauge
	c.handle(ctx, device.Event{Kind: device.EventTouchStart,
		Changed: []device.Touch{touch(1, 1)}, Touches: []device.Touch{touch(1, 1)}})
	if c.State().Pressed(1) || len(dev.draws) != 0 || len(dev.vibes) != 0 {
		t.Error("gauge key treated as pressable")
	}

	// empty slot is tracked but neither painted nor actioned
	c.handle(ctx, device.Event{Kind: device.EventTouchStart,
		Changed: []device.Touch{touch(2, 8)}, Touches: []device.Touch{touch(2, 8)}})
	if !c.State().Pressed(8) {
		t.Error("empty slot not tracked as pressed")
	}
	if len(dev.draws) != 0 || len(tel.sent()) != 0 || len(dev.vibes) != 0 {
		t.Error("empty slot painted or actioned")
	}
	c.handle(ctx, device.Event{Kind: device.EventTouchEnd,
		Changed: []device.Touch{touch(2, 8)}})
	if c.State().Pressed(8) {
		t.Error("empty slot still pressed after touchend")
	}
}

func TestKnob_HighlightDebounce(t *testing.T) {
	c, dev, tel, clk := newTestController(t)
	ctx := context.Background()
	knob := device.Knob{Side: device.Left, Position: device.Top}

	c.handle(ctx, device.Event{Kind: device.EventRotate, Button: knob.Button(), Delta: 1})
	c.handle(ctx, device.Event{Kind: device.EventRotate, Button: knob.Button(), Delta: -1})

	if len(clk.timers) != 1 {
		t.Fatalf("timers = %d, want 1", len(clk.timers))
	}
	strips := dev.stripDraws(protocol.DisplayLeft)
	if len(strips) != 2 {
		t.Fatalf("strip paints = %d, want 2", len(strips))
	}
	for i, s := range strips {
		if got := s.lit("#00b4d8"); got != [profile.SideSlots]bool{true, false, false} {
			t.Errorf("paint %d highlight = %v, want top only", i, got)
		}
	}
	want := []string{"sim/autopilot/heading_up", "sim/autopilot/heading_down"}
	if got := tel.sent(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("commands = %v, want %v", got, want)
	}

	clk.timers[0].f()
	c.expire(<-c.expired)
	if c.State().Highlighted(knob) {
		t.Error("knob still highlighted after expiry")
	}
	strips = dev.stripDraws(protocol.DisplayLeft)
	if len(strips) != 3 || strips[2].lit("#00b4d8") != [profile.SideSlots]bool{} {
		t.Error("expiry did not repaint the strip unlit")
	}

	// a new window starts a new timer
	c.handle(ctx, device.Event{Kind: device.EventDown, Button: knob.Button()})
	if len(clk.timers) != 2 {
		t.Errorf("timers = %d, want 2", len(clk.timers))
	}
	if got := tel.sent(); got[len(got)-1] != "sim/autopilot/heading_sync" {
		t.Errorf("press sent %q, want heading_sync", got[len(got)-1])
	}
}

func TestKnob_StaleExpiryIgnored(t *testing.T) {
	c, dev, _, clk := newTestController(t)
	ctx := context.Background()
	knob := device.Knob{Side: device.Left, Position: device.Center}

	c.handle(ctx, device.Event{Kind: device.EventRotate, Button: knob.Button(), Delta: 1})
	c.state.stopTimers()
	if !clk.timers[0].stopped {
		t.Error("timer not stopped")
	}
	n := len(dev.draws)
	c.expire(expiryMsg{knob: knob, id: 1})
	if len(dev.draws) != n {
		t.Error("expiry of a cleared highlight repainted")
	}
}

func TestKnob_ExpiryWaitsForLoop(t *testing.T) {
	c, _, _, clk := newTestController(t)
	c.expired = make(chan expiryMsg)
	knob := device.Knob{Side: device.Left, Position: device.Bottom}
	c.handle(context.Background(), device.Event{Kind: device.EventRotate, Button: knob.Button(), Delta: 1})

	fired := make(chan struct{})
	go func() {
		clk.timers[0].f()
		close(fired)
	}()
	select {
	case m := <-c.expired:
		c.expire(m)
	case <-time.After(5 * time.Second):
		t.Fatal("expiry not delivered")
	}
	<-fired
	if c.State().Highlighted(knob) {
		t.Error("knob still highlighted after expiry")
	}
}

func TestKnob_ExpiryAfterRunReturns(t *testing.T) {
	c, dev, _, clk := newTestController(t)
	c.expired = make(chan expiryMsg)
	dev.events <- device.Event{Kind: device.EventRotate, Button: device.Knob{Side: device.Left, Position: device.Top}.Button(), Delta: 1}
	close(dev.events)
	if err := c.Run(context.Background(), dev); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	fired := make(chan struct{})
	go func() {
		clk.timers[0].f()
		close(fired)
	}()
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("expiry blocked after Run returned")
	}
}

func TestKnob_UnconfiguredSideIgnored(t *testing.T) {
	c, dev, tel, clk := newTestController(t)
	ctx := context.Background()
	knob := device.Knob{Side: device.Right, Position: device.Bottom}

	c.handle(ctx, device.Event{Kind: device.EventRotate, Button: knob.Button(), Delta: 1})
	c.handle(ctx, device.Event{Kind: device.EventDown, Button: knob.Button()})

	if len(dev.draws) != 0 || len(clk.timers) != 0 || len(tel.sent()) != 0 {
		t.Errorf("draws=%d timers=%d commands=%v, want nothing", len(dev.draws), len(clk.timers), tel.sent())
	}
}

func TestKnob_EmptySlotHighlightsOnly(t *testing.T) {
	c, dev, tel, clk := newTestController(t)
	knob := device.Knob{Side: device.Left, Position: device.Bottom}

	c.handle(context.Background(), device.Event{Kind: device.EventRotate, Button: knob.Button(), Delta: 1})
	if len(dev.stripDraws(protocol.DisplayLeft)) != 1 || len(clk.timers) != 1 {
		t.Error("configured side with empty slot not highlighted")
	}
	if len(tel.sent()) != 0 {
		t.Errorf("commands = %v, want none", tel.sent())
	}
}

func TestConnect_SubscribesOnce(t *testing.T) {
	c, dev, tel, _ := newTestController(t)
	ctx := context.Background()

	c.handle(ctx, device.Event{Kind: device.EventConnect})
	if dev.colors[0] != "#00b4d8" || dev.colors[1] != "white" {
		t.Errorf("button colours = %v", dev.colors)
	}
	waitFor(t, func() bool { return tel.subscriptions() == 2 })

	c.handle(ctx, device.Event{Kind: device.EventConnect})
	time.Sleep(20 * time.Millisecond)
	if n := tel.subscriptions(); n != 2 {
		t.Errorf("subscriptions after reconnect = %d, want 2", n)
	}
	if n := len(c.State().Bindings()); n != 2 {
		t.Errorf("bindings = %d, want 2", n)
	}
}

func TestConnect_RetriesFailedSubscriptions(t *testing.T) {
	dev := newFakeDevice()
	tel := newFakeTelemetry()
	tel.setFailures(3)
	c := New(testProfile(), tel, WithClock(&fakeClock{}), WithRetryDelay(time.Millisecond))
	c.dev = dev

	c.handle(context.Background(), device.Event{Kind: device.EventConnect})
	waitFor(t, func() bool { return tel.subscriptions() == 2 })
	waitFor(t, func() bool { return !c.retrying() })

	// two failed rounds then the last binding succeeds
	if n := tel.tries(); n != 5 {
		t.Errorf("Subscribe calls = %d, want 5", n)
	}
	if got := tel.order; got[0] != "sim/engine/egt" || got[1] != "sim/engine/n1[0]" {
		t.Errorf("subscription order = %v", got)
	}

	// samples flow once subscribed
	tel.subs["sim/engine/n1[0]"][0](88)
	c.sample(<-c.samples)
	if got := c.State().Values(0, 1); got[0] != 88 {
		t.Errorf("Values(0, 1) = %v, want [88]", got)
	}
}

func TestConnect_ResumesSubscriptionsAfterCancel(t *testing.T) {
	dev := newFakeDevice()
	tel := newFakeTelemetry()
	tel.setFailures(math.MaxInt)
	c := New(testProfile(), tel, WithClock(&fakeClock{}), WithRetryDelay(time.Millisecond))
	c.dev = dev

	ctx, cancel := context.WithCancel(context.Background())
	c.handle(ctx, device.Event{Kind: device.EventConnect})
	waitFor(t, func() bool { return tel.tries() >= 4 })
	cancel()
	waitFor(t, func() bool { return !c.retrying() })
	if n := tel.subscriptions(); n != 0 {
		t.Fatalf("subscriptions = %d, want 0", n)
	}

	tel.setFailures(0)
	c.handle(context.Background(), device.Event{Kind: device.EventConnect})
	waitFor(t, func() bool { return tel.subscriptions() == 2 })
	if n := len(c.State().Bindings()); n != 2 {
		t.Errorf("bindings = %d, want 2", n)
	}
}

func TestConnect_NoTelemetry(t *testing.T) {
	c := New(testProfile(), nil, WithClock(&fakeClock{}))
	c.dev = newFakeDevice()
	c.handle(context.Background(), device.Event{Kind: device.EventConnect})
	if c.retrying() {
		t.Error("subscriber started without telemetry")
	}
}

func TestFanout_ResetOnPageSwitch(t *testing.T) {
	c, dev, tel, _ := newTestController(t)
	ctx := context.Background()

	c.handle(ctx, device.Event{Kind: device.EventConnect})
	waitFor(t, func() bool { return tel.subscriptions() == 2 })

	// the engine page is not showing: value buffered, nothing painted
	tel.subs["sim/engine/egt"][0](640)
	c.sample(<-c.samples)
	if got := c.State().Values(1, 0); got[0] != 640 {
		t.Errorf("buffered value = %v, want 640", got)
	}
	drawn := len(dev.keyDraws(0))

	c.handle(ctx, device.Event{Kind: device.EventDown, Button: device.PageButton(1)})
	if got := c.State().Values(1, 0); !math.IsNaN(got[0]) {
		t.Errorf("value after switch = %v, want NaN", got)
	}
	draws := dev.keyDraws(0)
	if len(draws) != drawn+1 {
		t.Fatalf("gauge paints after switch = %d, want %d", len(draws), drawn+1)
	}
	if texts := draws[len(draws)-1].Rec.Texts(); len(texts) < 2 || texts[0] != "X" || texts[1] != "EGT" {
		t.Errorf("placeholder texts = %q, want [X EGT]", texts)
	}

	// now showing: the next sample repaints
	tel.subs["sim/engine/egt"][0](655)
	c.sample(<-c.samples)
	draws = dev.keyDraws(0)
	if texts := draws[len(draws)-1].Rec.Texts(); len(texts) == 0 || texts[0] != "655" {
		t.Errorf("live texts = %q, want 655 first", texts)
	}
}

func TestFanout_Register(t *testing.T) {
	s := NewState(testProfile())
	bs := s.RegisterAll()
	if len(bs) != 2 {
		t.Fatalf("RegisterAll() = %d bindings, want 2", len(bs))
	}
	if bs[0] != (Binding{Page: 0, Key: 1, Source: 0, Dataref: "sim/engine/n1[0]"}) {
		t.Errorf("first binding = %+v", bs[0])
	}
	if got := s.Values(0, 1); len(got) != 1 || !math.IsNaN(got[0]) {
		t.Errorf("Values(0, 1) = %v, want [NaN]", got)
	}
	if s.Values(0, 3) != nil {
		t.Error("action key has a values array")
	}
	if s.Sample(Binding{Page: 0, Key: 1, Source: 4}, 1) {
		t.Error("out-of-range source accepted")
	}
	if !s.Sample(bs[0], 42) {
		t.Error("sample on the active page not flagged for redraw")
	}
	if keys := s.ResetPage(0); len(keys) != 1 || keys[0] != 1 {
		t.Errorf("ResetPage(0) = %v, want [1]", keys)
	}
}

func TestRun_StopsWhenEventsClose(t *testing.T) {
	c, dev, _, _ := newTestController(t)
	dev.events <- device.Event{Kind: device.EventConnect}
	dev.events <- device.Event{Kind: device.EventDisconnect}
	close(dev.events)

	errc := make(chan error, 1)
	go func() { errc <- c.Run(context.Background(), dev) }()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	if len(dev.draws) != profile.KeyCount+2 {
		t.Errorf("connect painted %d times, want %d", len(dev.draws), profile.KeyCount+2)
	}
}

func TestRun_Cancelled(t *testing.T) {
	c, dev, _, _ := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx, dev); err != context.Canceled {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
