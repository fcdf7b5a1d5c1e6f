package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muurk/wanctl/internal/jobs"
)

var stepNames = map[jobs.Step]string{
	jobs.StepSettle:     "Waiting before login",
	jobs.StepLogin:      "Logging in",
	jobs.StepDisconnect: "Disconnecting WAN",
	jobs.StepOutage:     "Waiting for the line to drop",
	jobs.StepConnect:    "Connecting WAN",
}

// StepName returns the display name of a reconnect step
func StepName(step jobs.Step) string {
	if name, ok := stepNames[step]; ok {
		return name
	}
	return string(step)
}

// ReconnectView prints the header, step lines and result of an in-process
// reconnect.
type ReconnectView struct {
	Header   *Header
	Progress *Progress
	Delays   jobs.Delays
	out      io.Writer
	index    map[jobs.Step]int
	start    time.Time
}

// NewReconnectView creates a view writing to out (os.Stdout if nil)
func NewReconnectView(out io.Writer, delays jobs.Delays, params ...Param) *ReconnectView {
	if out == nil {
		out = os.Stdout
	}

	names := make([]string, len(jobs.Steps))
	index := make(map[jobs.Step]int, len(jobs.Steps))
	for i, step := range jobs.Steps {
		names[i] = StepName(step)
		index[step] = i + 1
	}

	return &ReconnectView{
		Header:   NewHeader("WAN reconnect", "wanctl reconnect", params...),
		Progress: NewProgress(names...),
		Delays:   delays,
		out:      out,
		index:    index,
	}
}

// SetWidth sets the width of every component
func (v *ReconnectView) SetWidth(width int) *ReconnectView {
	v.Header.SetWidth(width)
	v.Progress.SetWidth(width)
	return v
}

// Begin prints the header
func (v *ReconnectView) Begin() {
	v.start = time.Now()
	_, _ = fmt.Fprintln(v.out, v.Header.Render())
	_, _ = fmt.Fprintln(v.out)
}

// OnStep is a jobs.StepFunc that prints each step as it changes
func (v *ReconnectView) OnStep(step jobs.Step, status jobs.StepStatus, message string) {
	n, ok := v.index[step]
	if !ok {
		return
	}

	switch status {
	case jobs.StepStarted:
		v.Progress.UpdateStep(n, StepRunning, v.delayNote(step))
		// Overwritten in place when the step finishes
		_, _ = fmt.Fprint(v.out, v.Progress.renderStepLine(v.Progress.Steps[n-1])+"\r")
	case jobs.StepSucceeded:
		v.Progress.UpdateStep(n, StepComplete, v.delayNote(step))
		_, _ = fmt.Fprintln(v.out, v.Progress.renderStepLine(v.Progress.Steps[n-1]))
	case jobs.StepFailed:
		v.Progress.UpdateStep(n, StepFailed, "")
		_, _ = fmt.Fprintln(v.out, v.Progress.renderStepLine(v.Progress.Steps[n-1]))
	}
}

// Finish prints the skipped steps and the result box for the terminal
// message and reports whether the reconnect succeeded.
func (v *ReconnectView) Finish(message string) bool {
	elapsed := time.Since(v.start).Round(time.Millisecond)
	_, _ = fmt.Fprintln(v.out)

	if message == jobs.DoneMessage {
		result := NewSuccessResult("Reconnect complete", Param{"Duration", elapsed.String()})
		result.SetWidth(v.Header.Width)
		_, _ = fmt.Fprintln(v.out, result.Render())
		return true
	}

	v.Progress.SkipRemaining()
	result := NewFailureResult("Reconnect failed", message,
		"Check the router address (--router-url)",
		"Check the admin password (WANCTL_PASSWORD)",
		"If the WAN is down, reconnect from the router's own page",
	)
	result.AddDetail("Duration", elapsed.String())
	result.SetWidth(v.Header.Width)
	_, _ = fmt.Fprintln(v.out, result.Render())
	return false
}

func (v *ReconnectView) delayNote(step jobs.Step) string {
	switch step {
	case jobs.StepSettle:
		return v.Delays.Settle.String()
	case jobs.StepOutage:
		return v.Delays.Outage.String()
	}
	return ""
}
