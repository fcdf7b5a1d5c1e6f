// Package ui provides terminal output for the wanctl CLI.
//
// Components are rendered with Lipgloss and follow a "print and move on"
// pattern rather than an interactive TUI:
//
//   - Header: command banner with parameters
//   - Progress: progress bar and step list (bubbles/progress)
//   - Result: success, failure or warning box
//   - WaitModel: Bubble Tea spinner shown while a remote job runs
//
// ReconnectView ties these together for an in-process reconnect. Its OnStep
// method is a jobs.StepFunc:
//
//	view := ui.NewReconnectView(os.Stdout, delays, ui.Param{Key: "Router", Value: url})
//	view.Begin()
//	msg := runner.Reconnect(ctx, view.OnStep)
//	ok := view.Finish(msg)
//
// Logging is controlled by WANCTL_LOG_LEVEL. When unset the CLI keeps zap
// quiet so these components are the only output.
package ui
