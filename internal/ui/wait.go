package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WaitFunc performs a blocking operation and returns its text result
type WaitFunc func(ctx context.Context) (string, error)

// waitDoneMsg carries the result of the WaitFunc into the model
type waitDoneMsg struct {
	result string
	err    error
}

// tickMsg refreshes the elapsed time
type tickMsg time.Time

// WaitModel is a Bubble Tea model that shows a spinner and elapsed time
// while a WaitFunc runs, then exits.
type WaitModel struct {
	label    string
	hint     string
	spinner  spinner.Model
	wait     WaitFunc
	ctx      context.Context
	cancel   context.CancelFunc
	started  time.Time
	elapsed  time.Duration
	result   string
	err      error
	done     bool
	canceled bool
}

// NewWaitModel creates a model running wait under ctx
func NewWaitModel(ctx context.Context, label, hint string, wait WaitFunc) WaitModel {
	ctx, cancel := context.WithCancel(ctx)
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(PrimaryColor)),
	)
	return WaitModel{
		label:   label,
		hint:    hint,
		spinner: s,
		wait:    wait,
		ctx:     ctx,
		cancel:  cancel,
		started: time.Now(),
	}
}

// Init implements tea.Model
func (m WaitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run(), tick())
}

func (m WaitModel) run() tea.Cmd {
	return func() tea.Msg {
		result, err := m.wait(m.ctx)
		return waitDoneMsg{result: result, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model
func (m WaitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.canceled = true
			m.cancel()
			return m, tea.Quit
		}
	case waitDoneMsg:
		m.done = true
		m.result, m.err = msg.result, msg.err
		m.elapsed = time.Since(m.started)
		m.cancel()
		return m, tea.Quit
	case tickMsg:
		m.elapsed = time.Since(m.started)
		return m, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m WaitModel) View() string {
	if m.done || m.canceled {
		return ""
	}
	line := fmt.Sprintf("  %s %s %s", m.spinner.View(),
		lipgloss.NewStyle().Foreground(TextColor).Bold(true).Render(m.label),
		StepNoteStyle.Render(m.elapsed.Round(time.Second).String()))
	if m.hint != "" {
		line += "\n  " + HintStyle.Render(m.hint)
	}
	return line + "\n"
}

// Result returns the outcome once the program has exited
func (m WaitModel) Result() (string, time.Duration, error) {
	if m.canceled {
		return "", m.elapsed, context.Canceled
	}
	return m.result, m.elapsed, m.err
}

// RunWait runs wait behind a spinner on out and returns its result. When out
// is not a terminal the spinner is skipped and wait runs directly.
func RunWait(ctx context.Context, out io.Writer, label, hint string, wait WaitFunc) (string, time.Duration, error) {
	if f, ok := out.(*os.File); !ok || !IsTerminal(f) {
		start := time.Now()
		result, err := wait(ctx)
		return result, time.Since(start), err
	}

	final, err := tea.NewProgram(NewWaitModel(ctx, label, hint, wait), tea.WithOutput(out), tea.WithContext(ctx)).Run()
	if err != nil {
		return "", 0, err
	}
	return final.(WaitModel).Result()
}
