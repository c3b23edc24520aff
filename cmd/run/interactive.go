package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ruediste/micro-blocks/config"
	"github.com/ruediste/micro-blocks/modules/gui"
	"github.com/ruediste/micro-blocks/modules/sensor"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	stateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	addrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxOutputLines = 12

type interactiveModel struct {
	err      error
	host     *host
	filename string
	data     []byte
	output   []string
	input    textinput.Model
	ticks    int
	editing  bool
}

func newInteractiveModel(filename string, data []byte, h *host) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = ": "
	ti.Placeholder = "tick 10 | trigger 1 | pin 4 1 | gravity 0 0 9.8 | click 0 | reload"
	ti.Width = 60
	return &interactiveModel{filename: filename, data: data, host: h, input: ti}
}

type loadedMsg struct {
	err error
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

func (m *interactiveModel) load() tea.Msg {
	return loadedMsg{err: m.host.m.Load(m.data)}
}

func (m *interactiveModel) print(line string) {
	m.output = append(m.output, line)
	if n := len(m.output); n > maxOutputLines {
		m.output = m.output[n-maxOutputLines:]
	}
}

func (m *interactiveModel) tick(n int) {
	for i := 0; i < n; i++ {
		m.host.m.Tick(context.Background())
		m.ticks++
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			switch msg.String() {
			case "enter":
				m.err = m.execute(m.input.Value())
				m.input.SetValue("")
				m.input.Blur()
				m.editing = false
				return m, nil
			case "esc":
				m.input.Blur()
				m.editing = false
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "t":
			m.tick(1)
		case "T":
			m.tick(100)
		case "r":
			m.err = m.execute("reload")
		case ":":
			m.editing = true
			return m, m.input.Focus()
		}

	case loadedMsg:
		m.err = msg.err
	}
	return m, nil
}

// execute runs one command line.
func (m *interactiveModel) execute(line string) error {
	f := strings.Fields(line)
	if len(f) == 0 {
		return nil
	}
	args := f[1:]
	switch f[0] {
	case "tick":
		n := 1
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			n = v
		}
		m.tick(n)
	case "trigger":
		id, err := argU16(args, 0)
		if err != nil {
			return err
		}
		m.host.m.TriggerCallback(id)
	case "pin":
		p, err := argU16(args, 0)
		if err != nil {
			return err
		}
		lvl, err := argU16(args, 1)
		if err != nil {
			return err
		}
		if p > 255 {
			return fmt.Errorf("pin %d out of range", p)
		}
		m.host.driver.Set(uint8(p), lvl != 0)
	case "gravity":
		var v [3]float32
		for i := range v {
			if i >= len(args) {
				return fmt.Errorf("gravity needs x y z")
			}
			x, err := strconv.ParseFloat(args[i], 32)
			if err != nil {
				return err
			}
			v[i] = float32(x)
		}
		m.host.set.Sensor.Update(sensor.GravityValue{X: v[0], Y: v[1], Z: v[2]})
	case "click", "press", "release":
		idx, err := argU16(args, 0)
		if err != nil {
			return err
		}
		kind := map[string]gui.EventKind{"click": gui.Click, "press": gui.Press, "release": gui.Release}[f[0]]
		if !m.host.set.GUI.Event(int(idx), kind) {
			return fmt.Errorf("no gui element %d", idx)
		}
	case "reload":
		m.ticks = 0
		m.output = nil
		return m.host.m.Load(m.data)
	default:
		return fmt.Errorf("unknown command %q", f[0])
	}
	return nil
}

func argU16(args []string, i int) (uint16, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	v, err := strconv.ParseUint(args[i], 10, 16)
	return uint16(v), err
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Micro Blocks"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	fmt.Fprintf(&b, "  tick %d\n\n", m.ticks)

	s := m.host.m.Status()
	for _, t := range s.Threads {
		fmt.Fprintf(&b, "  %2d %s %s",
			t.ID,
			stateStyle.Render(fmt.Sprintf("%-8s", t.State)),
			addrStyle.Render(fmt.Sprintf("pc=0x%04x sp=0x%04x", t.PC, t.SP)))
		if t.Fault != "" {
			b.WriteString(" ")
			b.WriteString(errorStyle.Render(t.Fault))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n  yielded %v  delays %d  ready %v  triggered %v  resources %d\n",
		s.Yielded, len(s.Delays), s.Ready, s.Triggered, s.Resources)

	if els := m.host.set.GUI.Elements(); len(els) > 0 {
		fmt.Fprintf(&b, "  gui: %d elements\n", len(els))
	}

	b.WriteString("\n")
	for _, line := range m.output {
		b.WriteString(outputStyle.Render("  " + line))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.editing {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter run • esc cancel"))
	} else {
		b.WriteString(helpStyle.Render("space tick • T 100 ticks • r reload • : command • q quit"))
	}
	return b.String()
}

func runInteractive(filename string, data []byte, cfg *config.Config) error {
	ctx := context.Background()

	model := &interactiveModel{}
	h, err := newHost(ctx, cfg, hostOptions{
		printer: func(line string) { model.print(line) },
		quiet:   true,
	})
	if err != nil {
		return err
	}
	defer h.close(ctx)
	*model = *newInteractiveModel(filename, data, h)

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
