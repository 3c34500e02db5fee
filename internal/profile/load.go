package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/xpdeck/xpdeck/internal/format"
)

// Format identifies the syntax of a profile file.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

// FormatForPath picks the syntax from the file extension. Anything that is
// not .toml is read as YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads and parses a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	p, err := Parse(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Parse decodes profile data. Only syntax errors and a document that is
// not a page list are returned as errors; everything else becomes a
// warning.
func Parse(data []byte, f Format) (*Profile, error) {
	var doc any
	switch f {
	case FormatTOML:
		var m map[string]any
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, fmt.Errorf("invalid TOML: %w", err)
		}
		doc = m
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	}
	return build(doc)
}

type builder struct {
	warnings []string
}

func (b *builder) warnf(where, msg string, args ...any) {
	b.warnings = append(b.warnings, where+": "+fmt.Sprintf(msg, args...))
}

func build(doc any) (*Profile, error) {
	b := &builder{}

	var rawPages []any
	var topDefault any
	switch d := doc.(type) {
	case nil:
		// empty document
	case map[string]any:
		pages, ok := d["pages"]
		if !ok {
			return nil, fmt.Errorf("profile mapping has no pages entry")
		}
		if rawPages, ok = asList(pages); !ok && pages != nil {
			return nil, fmt.Errorf("pages must be a list, got %T", pages)
		}
		topDefault = d["default"]
	default:
		list, ok := asList(doc)
		if !ok {
			return nil, fmt.Errorf("profile must be a list of pages, got %T", doc)
		}
		rawPages = list
	}

	p := &Profile{}
	defaults := make([]any, len(rawPages))
	for i, raw := range rawPages {
		page, def := b.page(i, raw)
		p.Pages = append(p.Pages, page)
		defaults[i] = def
	}

	p.DefaultPage = b.defaultPage(topDefault, defaults)
	p.Warnings = b.warnings
	return p, nil
}

// defaultPage resolves the initial page: a top-level or first-page index,
// else the first page marked `default: true`.
func (b *builder) defaultPage(top any, perPage []any) int {
	idx, found := -1, false
	for _, candidate := range []any{top, first(perPage)} {
		if n, ok := asInt(candidate); ok {
			idx, found = n, true
			break
		}
	}
	if !found {
		for i, d := range perPage {
			if v, ok := d.(bool); ok && v {
				return i
			}
		}
		return 0
	}
	if idx < 0 || idx >= len(perPage) {
		b.warnf("profile", "default page %d out of range, using 0", idx)
		return 0
	}
	return idx
}

func first(list []any) any {
	if len(list) == 0 {
		return nil
	}
	return list[0]
}

func (b *builder) page(i int, raw any) (*Page, any) {
	where := fmt.Sprintf("page %d", i)
	page := &Page{}
	if raw == nil {
		return page, nil
	}
	m, ok := asMap(raw)
	if !ok {
		b.warnf(where, "expected a mapping, got %T", raw)
		return page, nil
	}

	for _, field := range sortedKeys(m) {
		v := m[field]
		switch field {
		case "name":
			page.Name = scalarString(v)
		case "color":
			page.Color = scalarString(v)
		case "default":
			// resolved by the caller
		case "keys":
			page.Keys = b.keys(where, v)
		case "left":
			page.Left = b.side(where+" left", v)
		case "right":
			page.Right = b.side(where+" right", v)
		default:
			b.warnf(where, "unknown field %q", field)
		}
	}
	return page, m["default"]
}

func (b *builder) keys(where string, v any) []*Key {
	if v == nil {
		return nil
	}
	list, ok := asList(v)
	if !ok {
		b.warnf(where, "keys must be a list, got %T", v)
		return nil
	}
	if len(list) > KeyCount {
		b.warnf(where, "%d keys configured, only the first %d are used", len(list), KeyCount)
		list = list[:KeyCount]
	}
	keys := make([]*Key, len(list))
	for i, raw := range list {
		keys[i] = b.key(fmt.Sprintf("%s key %d", where, i), raw, false)
	}
	return keys
}

func (b *builder) side(where string, v any) []*Key {
	if v == nil {
		return nil
	}
	list, ok := asList(v)
	if !ok {
		b.warnf(where, "side must be a list, got %T", v)
		return nil
	}
	if len(list) > SideSlots {
		b.warnf(where, "%d slots configured, only the first %d are used", len(list), SideSlots)
		list = list[:SideSlots]
	}
	slots := make([]*Key, len(list))
	for i, raw := range list {
		slots[i] = b.key(fmt.Sprintf("%s slot %d", where, i), raw, true)
	}
	return slots
}

func (b *builder) key(where string, raw any, sideSlot bool) *Key {
	if raw == nil {
		return nil
	}
	if isScalar(raw) {
		return &Key{Label: Label{Text: scalarString(raw)}}
	}
	m, ok := asMap(raw)
	if !ok {
		b.warnf(where, "cannot use %T as a key, leaving it empty", raw)
		return nil
	}
	if len(m) == 0 {
		return nil
	}

	k := &Key{}
	for _, field := range sortedKeys(m) {
		v := m[field]
		switch field {
		case "text":
			k.Text = scalarString(v)
		case "text2":
			k.Text2 = scalarString(v)
		case "size":
			if n, ok := asFloat(v); ok && n > 0 {
				k.Size = b.fontSize(where, "size", n)
			} else {
				b.warnf(where, "size must be a positive number")
			}
		case "color_bg":
			k.ColorBG = scalarString(v)
		case "color_fg":
			k.ColorFG = scalarString(v)
		case "color_bg2":
			k.ColorBG2 = scalarString(v)
		case "color_fg2":
			k.ColorFG2 = scalarString(v)
		case "pressed":
			k.Pressed = b.action(where+" pressed", v)
		case "inc":
			k.Inc = b.action(where+" inc", v)
		case "dec":
			k.Dec = b.action(where+" dec", v)
		case "display":
			if sideSlot {
				b.warnf(where, "side slots cannot show a display, ignoring it")
				continue
			}
			k.Display = b.display(where, v)
		default:
			b.warnf(where, "unknown field %q", field)
		}
	}
	return k
}

func (b *builder) fontSize(where, field string, n float64) float64 {
	if n > MaxFontSize {
		b.warnf(where, "%s %g is larger than %g, using %g", field, n, MaxFontSize, MaxFontSize)
		return MaxFontSize
	}
	return n
}

func (b *builder) action(where string, v any) *Action {
	if s, ok := v.(string); ok && s != "" {
		return &Action{Command: s}
	}
	m, ok := asMap(v)
	if !ok {
		b.warnf(where, "action must be a mapping with xplane_cmd")
		return nil
	}
	cmd := scalarString(m["xplane_cmd"])
	if cmd == "" {
		b.warnf(where, "action has no xplane_cmd")
		return nil
	}
	return &Action{Command: cmd}
}

func (b *builder) display(where string, v any) *DisplaySpec {
	m, ok := asMap(v)
	if !ok {
		b.warnf(where, "display must be a mapping, got %T", v)
		return nil
	}

	d := &DisplaySpec{}
	for _, field := range sortedKeys(m) {
		v := m[field]
		switch field {
		case "type":
			d.TypeName = scalarString(v)
			d.Type = ParseGaugeType(d.TypeName)
		case "source":
			d.Sources = b.sources(where, v)
		case "formatter":
			d.Formatter = b.formatter(where, v)
		case "formatter2":
			d.Formatter2 = b.formatter(where, v)
		case "min":
			d.Min = b.number(where, "min", v)
		case "max":
			d.Max = b.number(where, "max", v)
		case "stops":
			d.Stops = b.stops(where, v)
		case "tag":
			if v != nil {
				tag := scalarString(v)
				d.Tag = &tag
			}
		case "color_fg2":
			d.ColorFG2 = scalarString(v)
		case "font":
			if n, ok := asFloat(v); ok && n > 0 {
				d.Font = b.fontSize(where, "font", n)
			} else {
				b.warnf(where, "font must be a positive number")
			}
		default:
			b.warnf(where, "unknown display field %q", field)
		}
	}

	switch {
	case d.TypeName == "":
		b.warnf(where, "display has no type and will not be drawn")
	case d.Type == GaugeUnknown:
		b.warnf(where, "unknown gauge type %q will not be drawn", d.TypeName)
	case d.Type == GaugeMeter && (d.Min == nil || d.Max == nil):
		b.warnf(where, "meter needs min and max and will not be drawn")
	case d.Type == GaugeMeter && *d.Min == *d.Max:
		b.warnf(where, "meter min equals max")
	}
	if len(d.Sources) == 0 {
		b.warnf(where, "display has no source")
	}
	return d
}

func (b *builder) sources(where string, v any) []Source {
	list, ok := asList(v)
	if !ok {
		// a single source is accepted without the list
		list = []any{v}
	}
	sources := make([]Source, len(list))
	for i, raw := range list {
		name := ""
		if m, ok := asMap(raw); ok {
			name = scalarString(m["xplane_dataref"])
		} else if isScalar(raw) {
			name = scalarString(raw)
		}
		src, err := ParseSource(name)
		if err != nil {
			b.warnf(where, "source %d: %v", i, err)
			sources[i] = Source{Index: -1}
			continue
		}
		sources[i] = src
	}
	return sources
}

func (b *builder) formatter(where string, v any) *format.Template {
	src := scalarString(v)
	if src == "" {
		return nil
	}
	t, err := format.Compile(src)
	if err != nil {
		b.warnf(where, "%v", err)
		return nil
	}
	return t
}

func (b *builder) number(where, field string, v any) *float64 {
	n, ok := asFloat(v)
	if !ok {
		b.warnf(where, "%s must be a number", field)
		return nil
	}
	return &n
}

func (b *builder) stops(where string, v any) []Stop {
	list, ok := asList(v)
	if !ok {
		b.warnf(where, "stops must be a list")
		return nil
	}
	stops := make([]Stop, 0, len(list))
	for i, raw := range list {
		m, ok := asMap(raw)
		if !ok {
			b.warnf(where, "stop %d must be a mapping", i)
			continue
		}
		begin, okBegin := asFloat(m["value_begin"])
		end, okEnd := asFloat(m["value_end"])
		if !okBegin || !okEnd {
			b.warnf(where, "stop %d needs numeric value_begin and value_end", i)
			continue
		}
		color := scalarString(m["color"])
		if color == "" {
			color = "white"
		}
		stops = append(stops, Stop{ValueBegin: begin, ValueEnd: end, Color: color})
	}
	return stops
}

// Generic decoding helpers. yaml.v3 and BurntSushi/toml decode into
// slightly different dynamic shapes; these normalise both.

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	}
	return 0, false
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int64, uint64, float64:
		return true
	}
	return false
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
