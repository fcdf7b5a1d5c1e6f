package ui

import (
	"fmt"
	"strings"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result is a boxed outcome printed at the end of a command.
type Result struct {
	Type            ResultType
	Title           string   // e.g., "Reconnect complete"
	Details         []Param  // Key-value details to display
	Message         string   // Error text for failure results
	Troubleshooting []string // Hints shown under a failure
	Width           int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Param) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box. message is shown as is;
// errors reach the terminal already flattened to their text.
func NewFailureResult(title, message string, troubleshooting ...string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Message:         message,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details ...Param) *Result {
	return &Result{
		Type:    ResultWarning,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the width for rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail appends a detail line
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Param{Key: key, Value: value})
	return r
}

// Render returns the styled result box
func (r *Result) Render() string {
	width := clampWidth(r.Width)

	lines := []string{""}
	switch r.Type {
	case ResultFailure:
		lines = append(lines, ErrorTitleStyle.Render(fmt.Sprintf("%s  FAILED  ─  %s", FailureMarker, r.Title)), "")
		if r.Message != "" {
			lines = append(lines, ErrorMessageStyle.Render("Error: "+r.Message), "")
		}
	case ResultWarning:
		lines = append(lines, WarningTitleStyle.Render(fmt.Sprintf("⚠  WARNING  ─  %s", r.Title)), "")
	default:
		lines = append(lines, SuccessTitleStyle.Render(fmt.Sprintf("%s  SUCCESS  ─  %s", SuccessMarker, r.Title)), "")
	}

	for _, d := range r.Details {
		lines = append(lines, ResultKeyStyle.Render(d.Key+":")+" "+ResultValueStyle.Render(d.Value))
	}
	if len(r.Details) > 0 {
		lines = append(lines, "")
	}

	if r.Type == ResultFailure && len(r.Troubleshooting) > 0 {
		lines = append(lines, HintStyle.Bold(true).Render("Troubleshooting:"))
		for _, tip := range r.Troubleshooting {
			lines = append(lines, HintStyle.Render("  • "+tip))
		}
		lines = append(lines, "")
	}

	color := SuccessColor
	switch r.Type {
	case ResultFailure:
		color = ErrorColor
	case ResultWarning:
		color = WarningColor
	}
	return boxStyle(color, width).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
