package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wippyai/obd-bridge/bridge"
	"github.com/wippyai/obd-bridge/hostenv"
	"github.com/wippyai/obd-bridge/wasmhost"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	backendStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historySize = 10

func newInteractiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Process strings in a terminal UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := newInteractiveModel(a)
			defer m.close()
			p := tea.NewProgram(m, tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}
}

type backend int

const (
	backendNative backend = iota
	backendWasm
)

func (b backend) String() string {
	if b == backendWasm {
		return "wasm"
	}
	return "native"
}

type historyEntry struct {
	backend backend
	input   string
	result  string
	err     error
}

type interactiveModel struct {
	app     *app
	err     error
	host    *hostenv.Host
	fn      *bridge.Function
	rt      *wasmhost.Runtime
	input   textinput.Model
	history []historyEntry
	backend backend
	loaded  bool
}

type loadedMsg struct {
	err  error
	host *hostenv.Host
	fn   *bridge.Function
	rt   *wasmhost.Runtime
}

type callResultMsg struct {
	entry historyEntry
}

func newInteractiveModel(a *app) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "RPM=3000"
	ti.Prompt = "data: "
	ti.Width = 40
	ti.Focus()
	return &interactiveModel{app: a, input: ti}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.load)
}

func (m *interactiveModel) load() tea.Msg {
	rt, err := m.app.newWasmRuntime(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{
		host: hostenv.New(hostenv.WithLogger(m.app.log)),
		fn:   bridge.New(m.app.bridgeOptions()...),
		rt:   rt,
	}
}

func (m *interactiveModel) close() {
	if m.rt != nil {
		_ = m.rt.Close(context.Background())
	}
	if m.host != nil {
		_ = m.host.Close()
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "tab":
			if m.backend == backendNative {
				m.backend = backendWasm
			} else {
				m.backend = backendNative
			}
			return m, nil

		case "enter":
			if !m.loaded {
				return m, nil
			}
			in := m.input.Value()
			m.input.Reset()
			return m, m.call(m.backend, in)
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.host, m.fn, m.rt = msg.host, msg.fn, msg.rt
		m.loaded = true
		return m, nil

	case callResultMsg:
		m.history = append(m.history, msg.entry)
		if len(m.history) > historySize {
			m.history = m.history[len(m.history)-historySize:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) call(b backend, input string) tea.Cmd {
	return func() tea.Msg {
		e := historyEntry{backend: b, input: input}
		switch b {
		case backendWasm:
			e.result, e.err = m.rt.Process(context.Background(), input)
		default:
			e.result, e.err = processNative(m.host, m.fn, input)
		}
		return callResultMsg{entry: e}
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress esc to quit.", m.err))
	}
	if !m.loaded {
		return "Starting runtime..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("OBD Bridge"))
	b.WriteString(" ")
	b.WriteString(backendStyle.Render("[" + m.backend.String() + "]"))
	if m.app.cfg.Strict {
		b.WriteString(" strict")
	}
	b.WriteString("\n\n")

	for _, e := range m.history {
		b.WriteString(backendStyle.Render(fmt.Sprintf("%-6s ", e.backend)))
		b.WriteString(inputStyle.Render(fmt.Sprintf("%q", e.input)))
		b.WriteString(" -> ")
		if e.err != nil {
			b.WriteString(errorStyle.Render(e.err.Error()))
		} else {
			b.WriteString(resultStyle.Render(fmt.Sprintf("%q", e.result)))
		}
		b.WriteString("\n")
	}
	if len(m.history) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter process • tab switch backend • esc quit"))

	return b.String()
}
