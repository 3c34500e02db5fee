package panel

import (
	"math"

	"github.com/xpdeck/xpdeck/internal/profile"
)

// Binding ties one telemetry source to a gauge value slot.
type Binding struct {
	Page    int
	Key     int
	Source  int
	Dataref string
}

// Register records that source of key on page is fed by dataref. The
// key's values array is allocated on first registration with one NaN
// entry per source of its display.
func (s *State) Register(page, key, source int, dataref string) {
	if page < 0 || page >= len(s.values) || key < 0 || key >= profile.KeyCount {
		return
	}
	if s.values[page][key] == nil {
		n := 0
		if k := s.profile.Page(page).Key(key); k.IsGauge() {
			n = len(k.Display.Sources)
		}
		if source >= n {
			n = source + 1
		}
		s.values[page][key] = nan(n)
	}
	s.bindings = append(s.bindings, Binding{Page: page, Key: key, Source: source, Dataref: dataref})
}

// RegisterAll registers every gauge source on every page. It returns the
// new bindings.
func (s *State) RegisterAll() []Binding {
	start := len(s.bindings)
	for pi, page := range s.profile.Pages {
		for ki := 0; ki < profile.KeyCount; ki++ {
			k := page.Key(ki)
			if !k.IsGauge() {
				continue
			}
			for si, src := range k.Display.Sources {
				s.Register(pi, ki, si, src.Name())
			}
		}
	}
	return s.bindings[start:]
}

// Bindings returns every registration made so far.
func (s *State) Bindings() []Binding { return s.bindings }

// Values returns the buffered samples of a gauge key, or nil.
func (s *State) Values(page, key int) []float64 {
	if page < 0 || page >= len(s.values) || key < 0 || key >= profile.KeyCount {
		return nil
	}
	return s.values[page][key]
}

// Sample stores a value and reports whether the key is on the active page
// and should be redrawn.
func (s *State) Sample(b Binding, v float64) bool {
	vals := s.Values(b.Page, b.Key)
	if b.Source < 0 || b.Source >= len(vals) {
		return false
	}
	vals[b.Source] = v
	return b.Page == s.current
}

// ResetPage sets every gauge value of a page back to NaN and returns the
// gauge keys it touched.
func (s *State) ResetPage(page int) []int {
	if page < 0 || page >= len(s.values) {
		return nil
	}
	var keys []int
	for ki, vals := range s.values[page] {
		if vals == nil {
			continue
		}
		for i := range vals {
			vals[i] = math.NaN()
		}
		keys = append(keys, ki)
	}
	return keys
}

func nan(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}
