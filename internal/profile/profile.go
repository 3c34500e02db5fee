package profile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xpdeck/xpdeck/internal/format"
)

const (
	// KeyCount is the number of touch keys on a page.
	KeyCount = 12
	// SideSlots is the number of knob slots on each side strip.
	SideSlots = 3
	// DefaultLabelSize is the label font size in pixels.
	DefaultLabelSize = 22.0
	// MaxFontSize caps label and gauge font sizes; larger text cannot fit
	// on a 90 pixel key.
	MaxFontSize = 90.0
)

// GaugeType is the closed set of gauge kinds a display can render.
type GaugeType int

const (
	GaugeUnknown GaugeType = iota
	GaugeMeter
	GaugeText
	GaugeAttitude
	GaugeSpeed
	GaugeAltitude
)

var gaugeNames = map[string]GaugeType{
	"meter":               GaugeMeter,
	"text":                GaugeText,
	"attitude":            GaugeAttitude,
	"ias":                 GaugeSpeed,
	"speed":               GaugeSpeed,
	"mechanical-speed":    GaugeSpeed,
	"alt":                 GaugeAltitude,
	"altitude":            GaugeAltitude,
	"mechanical-altitude": GaugeAltitude,
}

// ParseGaugeType maps a configured type string to a GaugeType.
// Unrecognised strings yield GaugeUnknown.
func ParseGaugeType(s string) GaugeType {
	return gaugeNames[strings.ToLower(strings.TrimSpace(s))]
}

func (t GaugeType) String() string {
	switch t {
	case GaugeMeter:
		return "meter"
	case GaugeText:
		return "text"
	case GaugeAttitude:
		return "attitude"
	case GaugeSpeed:
		return "mechanical-speed"
	case GaugeAltitude:
		return "mechanical-altitude"
	default:
		return "unknown"
	}
}

// ActionKind selects which action of a key fires.
type ActionKind string

const (
	ActionPressed ActionKind = "pressed"
	ActionInc     ActionKind = "inc"
	ActionDec     ActionKind = "dec"
)

// Profile is a loaded page configuration. It is never mutated after Load.
type Profile struct {
	Path        string
	Pages       []*Page
	DefaultPage int
	Warnings    []string
}

// Page returns page i, or nil if i is out of range.
func (p *Profile) Page(i int) *Page {
	if p == nil || i < 0 || i >= len(p.Pages) {
		return nil
	}
	return p.Pages[i]
}

// Len returns the number of pages.
func (p *Profile) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Pages)
}

// Page is one screenful of keys and side strips.
type Page struct {
	Name string
	// Keys holds up to KeyCount slots; a nil entry is an empty slot.
	Keys []*Key
	// Left and Right are nil when the page has no configuration for that
	// side. Otherwise they hold up to SideSlots entries, top to bottom.
	Left  []*Key
	Right []*Key
	// Color is the accent colour for side strips and the page button.
	Color string
}

// Key returns the key in slot i, or nil for an empty or out-of-range slot.
func (p *Page) Key(i int) *Key {
	if p == nil || i < 0 || i >= len(p.Keys) {
		return nil
	}
	return p.Keys[i]
}

// AccentColor returns the page colour, white when unset.
func (p *Page) AccentColor() string {
	if p == nil || p.Color == "" {
		return "white"
	}
	return p.Color
}

// Label is the text drawn on a key or side slot.
type Label struct {
	Text     string
	Text2    string
	Size     float64
	ColorBG  string
	ColorFG  string
	ColorBG2 string
	ColorFG2 string
}

// FontSize returns the configured size or DefaultLabelSize.
func (l Label) FontSize() float64 {
	if l.Size > 0 {
		return min(l.Size, MaxFontSize)
	}
	return DefaultLabelSize
}

// Action is a simulator command bound to a key or knob.
type Action struct {
	Command string
}

// KeyKind distinguishes the key variants.
type KeyKind int

const (
	KeyLabel KeyKind = iota
	KeyAction
	KeyGauge
)

// Key is a configured slot: a plain label, an action key or a gauge.
type Key struct {
	Label
	Display *DisplaySpec
	Pressed *Action
	Inc     *Action
	Dec     *Action
}

// Kind reports which variant the key is. A key with a display is a gauge
// even if it also carries actions.
func (k *Key) Kind() KeyKind {
	switch {
	case k.Display != nil:
		return KeyGauge
	case k.Pressed != nil || k.Inc != nil || k.Dec != nil:
		return KeyAction
	default:
		return KeyLabel
	}
}

// IsGauge reports whether the key's face belongs to a gauge renderer.
func (k *Key) IsGauge() bool {
	return k != nil && k.Display != nil
}

// Action returns the action of the given kind, or nil.
func (k *Key) Action(kind ActionKind) *Action {
	if k == nil {
		return nil
	}
	switch kind {
	case ActionPressed:
		return k.Pressed
	case ActionInc:
		return k.Inc
	case ActionDec:
		return k.Dec
	}
	return nil
}

// Source is one telemetry input of a gauge.
type Source struct {
	Dataref string
	// Index selects an array element; -1 means the whole dataref.
	Index int
}

// Name returns the dataref name with its index suffix, if any.
func (s Source) Name() string {
	if s.Index < 0 {
		return s.Dataref
	}
	return fmt.Sprintf("%s[%d]", s.Dataref, s.Index)
}

// ParseSource splits an optional "[n]" suffix off a dataref name.
func ParseSource(name string) (Source, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Source{}, fmt.Errorf("empty dataref name")
	}
	open := strings.LastIndexByte(name, '[')
	if open < 0 || !strings.HasSuffix(name, "]") {
		return Source{Dataref: name, Index: -1}, nil
	}
	idx, err := strconv.Atoi(name[open+1 : len(name)-1])
	if err != nil || idx < 0 {
		return Source{}, fmt.Errorf("bad array index in %q", name)
	}
	if open == 0 {
		return Source{}, fmt.Errorf("missing dataref name in %q", name)
	}
	return Source{Dataref: name[:open], Index: idx}, nil
}

// Stop is a coloured band of a meter gauge.
type Stop struct {
	ValueBegin float64
	ValueEnd   float64
	Color      string
}

// DisplaySpec configures a gauge key.
type DisplaySpec struct {
	Type GaugeType
	// TypeName is the type string as written in the profile.
	TypeName string
	Sources  []Source

	Formatter  *format.Template
	Formatter2 *format.Template

	Min   *float64
	Max   *float64
	Stops []Stop

	Tag      *string
	ColorFG2 string
	Font     float64
}

// FontSize returns the configured gauge font size or DefaultLabelSize.
func (d *DisplaySpec) FontSize() float64 {
	if d.Font > 0 {
		return min(d.Font, MaxFontSize)
	}
	return DefaultLabelSize
}
