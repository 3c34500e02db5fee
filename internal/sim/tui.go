package sim

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"

	"github.com/xpdeck/xpdeck/internal/protocol"
)

// touchHold is how long a simulated finger stays on a key.
const touchHold = 150 * time.Millisecond

// Layout constants for the glass preview
const (
	MaxGlassColumns = 120
	MinGlassColumns = 48
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple
	AccentColor  = lipgloss.Color("#43BF6D") // Green
	ErrorColor   = lipgloss.Color("#FF5555") // Red
	MutedColor   = lipgloss.Color("#626262") // Gray
	TextColor    = lipgloss.Color("#FFFFFF") // White
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	glassStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(MutedColor)

	knobStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	selectedKnobStyle = lipgloss.NewStyle().
				Foreground(AccentColor).
				Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)
)

// Input is where the front panel sends what the user does.
type Input interface {
	Click(button byte) error
	Rotate(button byte, delta int8) error
	Touch(x, y int, id byte, end bool) error
}

// keyMap defines key bindings for the front panel
type keyMap struct {
	Page     key.Binding
	NextKnob key.Binding
	PrevKnob key.Binding
	Left     key.Binding
	Right    key.Binding
	Click    key.Binding
	Touch    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Page, k.Touch, k.Left, k.Right, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Page, k.Touch},
		{k.NextKnob, k.PrevKnob, k.Left, k.Right, k.Click},
		{k.Help, k.Quit},
	}
}

// touchKeys maps keyboard rows onto the 4x3 key grid.
var touchKeys = []string{
	"q", "w", "e", "r",
	"a", "s", "d", "f",
	"z", "x", "c", "v",
}

func newKeyMap() keyMap {
	return keyMap{
		Page: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8"),
			key.WithHelp("1-8", "page button"),
		),
		NextKnob: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next knob"),
		),
		PrevKnob: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous knob"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "turn left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "turn right"),
		),
		Click: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "click knob"),
		),
		Touch: key.NewBinding(
			key.WithKeys(touchKeys...),
			key.WithHelp("qwer/asdf/zxcv", "touch key"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// knobs in display order: left column top to bottom, then right.
var knobs = [...]struct {
	id    byte
	label string
}{
	{protocol.ButtonKnobTL, "L1"},
	{protocol.ButtonKnobCL, "L2"},
	{protocol.ButtonKnobBL, "L3"},
	{protocol.ButtonKnobTR, "R1"},
	{protocol.ButtonKnobCR, "R2"},
	{protocol.ButtonKnobBR, "R3"},
}

type frameMsg struct{}

type releaseMsg struct {
	x, y int
	id   byte
}

type inputErrMsg struct{ err error }

// Model is the bubbletea model of the simulated front panel.
type Model struct {
	hw      *Hardware
	input   Input
	updates <-chan struct{}

	keys keyMap
	help help.Model

	knob    int
	touchID byte
	glass   string
	lastErr error

	width, height int
}

// NewModel renders hw and sends user input to input. Each receive on
// updates triggers a redraw.
func NewModel(hw *Hardware, input Input, updates <-chan struct{}) Model {
	m := Model{
		hw:      hw,
		input:   input,
		updates: updates,
		keys:    newKeyMap(),
		help:    help.New(),
	}
	m.glass = m.renderGlass()
	return m
}

// Init starts waiting for panel updates.
func (m Model) Init() tea.Cmd {
	return waitForFrame(m.updates)
}

func waitForFrame(updates <-chan struct{}) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return frameMsg{}
	}
}

func (m Model) send(f func() error) tea.Cmd {
	return func() tea.Msg {
		if err := f(); err != nil {
			return inputErrMsg{err}
		}
		return inputErrMsg{}
	}
}

// Update handles input and redraws.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.glass = m.renderGlass()
		return m, nil

	case frameMsg:
		m.glass = m.renderGlass()
		return m, waitForFrame(m.updates)

	case inputErrMsg:
		m.lastErr = msg.err
		return m, nil

	case releaseMsg:
		return m, m.send(func() error { return m.input.Touch(msg.x, msg.y, msg.id, true) })

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Page):
		i := int(msg.String()[0] - '1')
		return m, m.send(func() error { return m.input.Click(protocol.ButtonPage0 + byte(i)) })

	case key.Matches(msg, m.keys.NextKnob):
		m.knob = (m.knob + 1) % len(knobs)
		return m, nil

	case key.Matches(msg, m.keys.PrevKnob):
		m.knob = (m.knob + len(knobs) - 1) % len(knobs)
		return m, nil

	case key.Matches(msg, m.keys.Left):
		id := knobs[m.knob].id
		return m, m.send(func() error { return m.input.Rotate(id, -1) })

	case key.Matches(msg, m.keys.Right):
		id := knobs[m.knob].id
		return m, m.send(func() error { return m.input.Rotate(id, 1) })

	case key.Matches(msg, m.keys.Click):
		id := knobs[m.knob].id
		return m, m.send(func() error { return m.input.Click(id) })

	case key.Matches(msg, m.keys.Touch):
		i := indexOf(touchKeys, msg.String())
		x, y := protocol.KeyOrigin(i)
		x += protocol.StripWidth + protocol.KeySize/2
		y += protocol.KeySize / 2
		m.touchID++
		id := m.touchID
		down := m.send(func() error { return m.input.Touch(x, y, id, false) })
		up := tea.Tick(touchHold, func(time.Time) tea.Msg { return releaseMsg{x: x, y: y, id: id} })
		return m, tea.Sequence(down, up)
	}
	return m, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// View renders the panel.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("XPDECK SIMULATED PANEL"))
	b.WriteString("\n")
	b.WriteString(glassStyle.Render(m.glass))
	b.WriteString("\n")
	b.WriteString(m.renderKnobs())
	b.WriteString("\n")
	b.WriteString(m.renderButtons())
	b.WriteString("\n")

	st := m.hw.Status()
	b.WriteString(statusStyle.Render(fmt.Sprintf(
		"frames %d  brightness %d  haptics %d (last 0x%02x)",
		st.Frames, st.Brightness, st.Vibrations, st.Vibration,
	)))
	b.WriteString("\n")
	if m.lastErr != nil {
		b.WriteString(errorStyle.Render(m.lastErr.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderKnobs() string {
	var parts []string
	for i, k := range knobs {
		style := knobStyle
		if i == m.knob {
			style = selectedKnobStyle
		}
		parts = append(parts, style.Render("◉ "+k.label))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderButtons() string {
	var parts []string
	for i := 0; i < protocol.PageButtons; i++ {
		c := m.hw.Button(i)
		dot := lipgloss.NewStyle().Foreground(hexColor(c)).Render("●")
		parts = append(parts, fmt.Sprintf("%s%d", dot, i+1))
	}
	return strings.Join(parts, " ")
}

// glassColumns picks the preview width for the terminal.
func (m Model) glassColumns() int {
	cols := MaxGlassColumns
	if m.width > 0 {
		cols = min(cols, m.width-2)
	}
	return max(cols, MinGlassColumns)
}

// renderGlass draws the three displays with half blocks, two pixel rows
// per text line.
func (m Model) renderGlass() string {
	return RenderHalfBlocks(m.hw.Glass(), m.glassColumns())
}

// RenderHalfBlocks scales img to cols columns and renders it with upper
// half blocks, foreground for the top pixel and background for the bottom.
func RenderHalfBlocks(img image.Image, cols int) string {
	b := img.Bounds()
	if cols <= 0 || b.Empty() {
		return ""
	}
	rows := cols * b.Dy() / b.Dx()
	rows += rows % 2
	if rows == 0 {
		rows = 2
	}
	small := imaging.Resize(img, cols, rows, imaging.Box)

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < cols; x++ {
			top := small.NRGBAAt(x, y)
			bottom := small.NRGBAAt(x, y+1)
			sb.WriteString(lipgloss.NewStyle().
				Foreground(hexColor(top)).
				Background(hexColor(bottom)).
				Render("▀"))
		}
	}
	return sb.String()
}

func hexColor(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}

// RunFrontPanel shows the interactive panel until the user quits or ctx
// is done.
func RunFrontPanel(ctx context.Context, s *Server) error {
	p := tea.NewProgram(NewModel(s.Hardware(), s, s.Updates()),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
