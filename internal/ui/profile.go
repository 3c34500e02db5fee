package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xpdeck/xpdeck/internal/profile"
)

const cellText = 16

// DescribeKey returns a one-line summary of a key slot.
func DescribeKey(k *profile.Key) string {
	if k == nil {
		return "·"
	}
	var s string
	switch k.Kind() {
	case profile.KeyGauge:
		name := k.Display.Type.String()
		if k.Display.Type == profile.GaugeUnknown && k.Display.TypeName != "" {
			name = k.Display.TypeName + "?"
		}
		s = "[" + name + "]"
		if len(k.Display.Sources) > 0 {
			s += " " + lastSegment(k.Display.Sources[0].Name())
		}
	default:
		s = strings.TrimSpace(k.Text + " " + k.Text2)
		if s == "" {
			s = "(blank)"
		}
	}
	if k.Pressed != nil || k.Inc != nil || k.Dec != nil {
		s += " ▸"
	}
	return truncate(s, cellText)
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func cell(k *profile.Key) string {
	if k == nil {
		return EmptyCellStyle.Render(DescribeKey(k))
	}
	return CellStyle.Render(DescribeKey(k))
}

// RenderPage renders one page: the key grid with the knob slots beside it.
func RenderPage(index int, page *profile.Page, isDefault bool) string {
	title := fmt.Sprintf("%d. %s", index+1, page.Name)
	if page.Name == "" {
		title = fmt.Sprintf("%d. (unnamed)", index+1)
	}
	if isDefault {
		title += " (default)"
	}
	accent := lipgloss.NewStyle().Foreground(lipgloss.Color(page.AccentColor())).Render("●")

	var rows []string
	for r := 0; r < 3; r++ {
		row := []string{cell(sideSlot(page.Left, r))}
		for c := 0; c < 4; c++ {
			row = append(row, cell(page.Key(r*4+c)))
		}
		row = append(row, cell(sideSlot(page.Right, r)))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		accent+" "+PageTitleStyle.Render(title),
		strings.Join(rows, "\n"),
	)
}

func sideSlot(slots []*profile.Key, i int) *profile.Key {
	if i < len(slots) {
		return slots[i]
	}
	return nil
}

// RenderProfile renders every page followed by the load warnings.
func RenderProfile(p *profile.Profile) string {
	var parts []string
	for i, page := range p.Pages {
		parts = append(parts, RenderPage(i, page, i == p.DefaultPage))
	}
	if w := RenderWarnings(p.Warnings); w != "" {
		parts = append(parts, w)
	}
	return strings.Join(parts, "\n\n")
}

// RenderWarnings lists profile warnings, or returns "" when there are none.
func RenderWarnings(warnings []string) string {
	if len(warnings) == 0 {
		return ""
	}
	lines := []string{TroubleshootingTitleStyle.Render(fmt.Sprintf("Warnings (%d):", len(warnings)))}
	for _, w := range warnings {
		lines = append(lines, WarningItemStyle.Render("  "+WarningMarker+" "+w))
	}
	return strings.Join(lines, "\n")
}
