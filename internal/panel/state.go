package panel

import (
	"github.com/xpdeck/xpdeck/internal/device"
	"github.com/xpdeck/xpdeck/internal/profile"
)

var emptyPage = &profile.Page{}

// highlight is a lit knob cell waiting for its clear timer.
type highlight struct {
	timer Timer
	id    uint64
}

// State is the runtime state of the panel. It is not safe for concurrent
// use; the controller goroutine owns it.
type State struct {
	profile *profile.Profile
	current int

	pressed     map[int]bool
	highlighted map[device.Knob]highlight

	// values[page][key] holds one sample per source of a gauge key;
	// nil for keys that are not gauges.
	values   [][][]float64
	bindings []Binding
}

// NewState starts on the profile's default page. An out-of-range default
// falls back to page 0.
func NewState(p *profile.Profile) *State {
	s := &State{
		profile:     p,
		pressed:     make(map[int]bool),
		highlighted: make(map[device.Knob]highlight),
		values:      make([][][]float64, p.Len()),
	}
	for i := range s.values {
		s.values[i] = make([][]float64, profile.KeyCount)
	}
	if d := p.DefaultPage; d >= 0 && d < p.Len() {
		s.current = d
	}
	return s
}

// CurrentIndex returns the active page index.
func (s *State) CurrentIndex() int { return s.current }

// PageCount returns the number of configured pages.
func (s *State) PageCount() int { return s.profile.Len() }

// CurrentPage returns the active page, or an empty page.
func (s *State) CurrentPage() *profile.Page {
	if p := s.profile.Page(s.current); p != nil {
		return p
	}
	return emptyPage
}

// KeyConfig returns slot i of the active page, or nil when the slot is
// empty or out of range.
func (s *State) KeyConfig(i int) *profile.Key {
	return s.CurrentPage().Key(i)
}

// SwitchTo makes page i active and reports whether the page must be
// reloaded. Out-of-range indices are ignored.
func (s *State) SwitchTo(i int) bool {
	if i < 0 || i >= s.profile.Len() {
		return false
	}
	s.current = i
	return true
}

// Side returns the slots configured for one side of the active page. ok is
// false when the page has no configuration for that side.
func (s *State) Side(side device.Side) (slots []*profile.Key, ok bool) {
	page := s.CurrentPage()
	if side == device.Left {
		slots = page.Left
	} else {
		slots = page.Right
	}
	return slots, slots != nil
}

// Pressed reports whether key i is held.
func (s *State) Pressed(i int) bool { return s.pressed[i] }

// PressedKeys returns the held keys in ascending order.
func (s *State) PressedKeys() []int {
	var out []int
	for i := 0; i < profile.KeyCount; i++ {
		if s.pressed[i] {
			out = append(out, i)
		}
	}
	return out
}

// Highlighted reports whether a knob has a pending clear timer.
func (s *State) Highlighted(k device.Knob) bool {
	_, ok := s.highlighted[k]
	return ok
}

// stopTimers cancels every pending highlight clear.
func (s *State) stopTimers() {
	for k, h := range s.highlighted {
		h.timer.Stop()
		delete(s.highlighted, k)
	}
}
