package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Currently executing
	StepComplete                   // Successfully completed
	StepFailed                     // Failed
	StepSkipped                    // Not run because an earlier step failed
)

// Step is a single line in a multi-step operation
type Step struct {
	Number  int        // 1-based
	Name    string     // e.g., "Disconnecting WAN"
	Status  StepStatus
	Message string // Optional note, e.g. "5s"
}

// Progress is a progress bar plus step list
type Progress struct {
	Steps   []Step
	Current int     // Current step (1-based)
	Percent float64 // 0.0 - 1.0
	Width   int
	bar     progress.Model
}

// NewProgress creates a progress display with one step per name
func NewProgress(names ...string) *Progress {
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Number: i + 1, Name: name}
	}

	p := &Progress{Steps: steps}
	p.SetWidth(GetTerminalWidth())
	return p
}

// SetWidth sizes the bar to leave room for the percentage and step count
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	barWidth := min(max(width-20, 20), 50)
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// Total returns the number of steps
func (p *Progress) Total() int {
	return len(p.Steps)
}

// UpdateStep sets a step's status and note. Out-of-range numbers are ignored.
func (p *Progress) UpdateStep(number int, status StepStatus, message string) {
	if number < 1 || number > len(p.Steps) {
		return
	}
	p.Steps[number-1].Status = status
	p.Steps[number-1].Message = message

	if status == StepRunning {
		p.Current = number
		return
	}

	completed := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete {
			completed++
		}
	}
	p.Percent = float64(completed) / float64(len(p.Steps))
}

// SkipRemaining marks every pending step as skipped
func (p *Progress) SkipRemaining() {
	for i := range p.Steps {
		if p.Steps[i].Status == StepPending {
			p.Steps[i].Status = StepSkipped
		}
	}
}

// Render returns the bar followed by the step list
func (p *Progress) Render() string {
	lines := []string{p.renderBar(), ""}
	for _, step := range p.Steps {
		lines = append(lines, p.renderStepLine(step))
	}
	return strings.Join(lines, "\n")
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}

func (p *Progress) renderBar() string {
	return lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %3.0f%%  [%d/%d]", p.bar.ViewAs(p.Percent), p.Percent*100, p.Current, len(p.Steps)))
}

// renderStepLine renders "[n/N] Name      marker  (note)"
func (p *Progress) renderStepLine(step Step) string {
	var marker string
	var style lipgloss.Style

	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = StepMarkerSkipped, StepPendingStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  [%d/%d] ", step.Number, len(p.Steps))
	b.WriteString(style.Render(step.Name))

	// Markers line up in one column
	padding := max(30-lipgloss.Width(step.Name), 1)
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}
