package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/gc-bridge/memrt"
	"github.com/wippyai/gc-bridge/runtime"
	"github.com/wippyai/gc-bridge/task"
	"github.com/wippyai/gc-bridge/value"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#875FAF")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87D7AF"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#875FAF"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AFD75F"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D75F5F"))

	helpStyle = lipgloss.NewStyle().
			Faint(true).
			Foreground(lipgloss.Color("#8A8A8A"))
)

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	rt       *runtime.Runtime
	worker   *task.Worker
	version  string
	funcs    []string
	input    textinput.Model
	selected int
	result   string
	state    modelState

	stackCap   int
	minVersion string
}

type readyMsg struct {
	err     error
	rt      *runtime.Runtime
	worker  *task.Worker
	version string
	funcs   []string
}

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(stackCap int, minVersion string) *interactiveModel {
	return &interactiveModel{
		state:      stateSelectFunc,
		stackCap:   stackCap,
		minVersion: minVersion,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.startRuntime
}

func (m *interactiveModel) startRuntime() tea.Msg {
	mem := memrt.New()
	rt, err := runtime.Init(mem, &runtime.Options{
		StackCapacity: m.stackCap,
		MinVersion:    m.minVersion,
	})
	if err != nil {
		return readyMsg{err: err}
	}

	w, err := task.NewWorker(rt.Binding())
	if err != nil {
		rt.Close()
		return readyMsg{err: err}
	}

	var funcs []string
	for _, name := range mem.Globals() {
		if trimmed, ok := strings.CutPrefix(name, "Base."); ok {
			funcs = append(funcs, trimmed)
		}
	}
	return readyMsg{rt: rt, worker: w, version: mem.Version(), funcs: funcs}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputArgs && msg.String() == "q" {
				break
			}
			if m.worker != nil {
				m.worker.Close()
			}
			if m.rt != nil {
				m.rt.Close()
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				m.input = textinput.New()
				m.input.Placeholder = "arguments, e.g. 10,2"
				m.input.Prompt = "args: "
				m.input.Width = 40
				m.input.Focus()
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case readyMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt = msg.rt
		m.worker = msg.worker
		m.version = msg.version
		m.funcs = msg.funcs

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

// callFunction offloads the call to the task worker so the TUI event loop
// never touches the root stack directly.
func (m *interactiveModel) callFunction() tea.Msg {
	name := m.funcs[m.selected]
	args := parseArgs(m.input.Value())

	fut := m.worker.Submit(func(s *task.Scope) (any, error) {
		fn, err := value.Global(s, "Base", name)
		if err != nil {
			return nil, err
		}
		vals := make([]value.Value, len(args))
		for i, a := range args {
			v, err := value.New(s, a)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		res, err := s.Call(fn, vals...)
		if err != nil {
			if exc, ok := value.AsException(err); ok {
				return nil, fmt.Errorf("%s: %s", exc.TypeName(), value.ExceptionMessage(s, exc))
			}
			return nil, err
		}
		return render(s, res)
	})

	out, err := fut.Wait(context.Background())
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: out.(string)}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.funcs) == 0 {
		return "Bringing up the runtime..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("jlrun"))
	b.WriteString(" memrt " + m.version)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Pick a Base function:\n\n")
		for i, f := range m.funcs {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + "Base." + f))
			} else {
				b.WriteString(cursor + "Base." + funcStyle.Render(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ move · enter call · q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling Base.%s\n\n", funcStyle.Render(f)))
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter call · esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of Base.%s:\n\n", funcStyle.Render(f)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter back to list · q quit"))
	}

	return b.String()
}

func runInteractive(stackCap int, minVersion string) error {
	p := tea.NewProgram(newInteractiveModel(stackCap, minVersion), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
