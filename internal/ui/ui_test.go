package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/wanctl/internal/jobs"
)

func TestProgressPercent(t *testing.T) {
	p := NewProgress("one", "two", "three", "four")

	p.UpdateStep(1, StepRunning, "")
	assert.Equal(t, 1, p.Current)
	assert.Zero(t, p.Percent)

	p.UpdateStep(1, StepComplete, "")
	p.UpdateStep(2, StepComplete, "")
	assert.InDelta(t, 0.5, p.Percent, 0.001)

	// Out of range is ignored
	p.UpdateStep(9, StepComplete, "")
	assert.InDelta(t, 0.5, p.Percent, 0.001)
}

func TestProgressSkipRemaining(t *testing.T) {
	p := NewProgress("one", "two", "three")
	p.UpdateStep(1, StepComplete, "")
	p.UpdateStep(2, StepFailed, "")
	p.SkipRemaining()

	assert.Equal(t, StepComplete, p.Steps[0].Status)
	assert.Equal(t, StepFailed, p.Steps[1].Status)
	assert.Equal(t, StepSkipped, p.Steps[2].Status)
}

func TestProgressRender(t *testing.T) {
	p := NewProgress("Logging in").SetWidth(80)
	p.UpdateStep(1, StepComplete, "1s")

	out := p.Render()
	assert.Contains(t, out, "[1/1]")
	assert.Contains(t, out, "Logging in")
	assert.Contains(t, out, "(1s)")
	assert.Contains(t, out, StepMarkerComplete)
}

func TestHeaderKeepsParamOrder(t *testing.T) {
	h := NewHeader("WAN reconnect", "wanctl reconnect",
		Param{Key: "Router", Value: "http://192.168.0.1/"},
		Param{Key: "Outage", Value: "5s"},
	).SetWidth(80)

	out := h.Render()
	assert.Contains(t, out, "WAN RECONNECT")
	assert.Contains(t, out, "wanctl reconnect")
	assert.Less(t, strings.Index(out, "Router"), strings.Index(out, "Outage"))
}

func TestResultRender(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		out := NewSuccessResult("Reconnect complete", Param{Key: "Duration", Value: "6s"}).SetWidth(80).Render()
		assert.Contains(t, out, "SUCCESS")
		assert.Contains(t, out, "Duration")
	})

	t.Run("failure", func(t *testing.T) {
		out := NewFailureResult("Reconnect failed", "HTTP status 401 Unauthorized", "Check the password").SetWidth(80).Render()
		assert.Contains(t, out, "FAILED")
		assert.Contains(t, out, "HTTP status 401 Unauthorized")
		assert.Contains(t, out, "Check the password")
	})

	t.Run("warning", func(t *testing.T) {
		out := NewWarningResult("No config file").SetWidth(80).Render()
		assert.Contains(t, out, "WARNING")
	})
}

func TestStepNames(t *testing.T) {
	for _, step := range jobs.Steps {
		assert.NotEqual(t, string(step), StepName(step), "step %s has no display name", step)
	}
	assert.Equal(t, "custom", StepName(jobs.Step("custom")))
}

func TestReconnectViewSuccess(t *testing.T) {
	var out bytes.Buffer
	view := NewReconnectView(&out, jobs.Delays{Settle: time.Second, Outage: 5 * time.Second},
		Param{Key: "Router", Value: "http://192.168.0.1/"}).SetWidth(80)

	view.Begin()
	for _, step := range jobs.Steps {
		view.OnStep(step, jobs.StepStarted, "")
		view.OnStep(step, jobs.StepSucceeded, "")
	}
	ok := view.Finish(jobs.DoneMessage)

	assert.True(t, ok)
	assert.InDelta(t, 1.0, view.Progress.Percent, 0.001)
	assert.Contains(t, out.String(), "Reconnect complete")
	assert.Contains(t, out.String(), "(5s)")
}

func TestReconnectViewFailure(t *testing.T) {
	var out bytes.Buffer
	view := NewReconnectView(&out, jobs.DefaultDelays()).SetWidth(80)

	view.Begin()
	view.OnStep(jobs.StepSettle, jobs.StepStarted, "")
	view.OnStep(jobs.StepSettle, jobs.StepSucceeded, "")
	view.OnStep(jobs.StepLogin, jobs.StepStarted, "")
	view.OnStep(jobs.StepLogin, jobs.StepFailed, "HTTP status 401 Unauthorized")
	ok := view.Finish("HTTP status 401 Unauthorized")

	assert.False(t, ok)
	assert.Equal(t, StepFailed, view.Progress.Steps[1].Status)
	assert.Equal(t, StepSkipped, view.Progress.Steps[4].Status)
	assert.Contains(t, out.String(), "HTTP status 401 Unauthorized")
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"y\n", false},
		{"no\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			got := Confirm(strings.NewReader(tt.input), &out, "Reconnect WAN", "Internet access drops for a few seconds")
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Reconnect WAN")
		})
	}
}

func TestWaitModelDone(t *testing.T) {
	m := NewWaitModel(context.Background(), "Waiting", "", nil)

	next, cmd := m.Update(waitDoneMsg{result: "Done"})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	result, _, err := next.(WaitModel).Result()
	assert.NoError(t, err)
	assert.Equal(t, "Done", result)
	assert.Empty(t, next.View())
}

func TestWaitModelError(t *testing.T) {
	m := NewWaitModel(context.Background(), "Waiting", "", nil)

	next, _ := m.Update(waitDoneMsg{err: errors.New("boom")})

	_, _, err := next.(WaitModel).Result()
	assert.EqualError(t, err, "boom")
}

func TestWaitModelCancel(t *testing.T) {
	m := NewWaitModel(context.Background(), "Waiting", "", nil)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)

	_, _, err := next.(WaitModel).Result()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Error(t, m.ctx.Err())
}

func TestWaitModelView(t *testing.T) {
	m := NewWaitModel(context.Background(), "Reconnecting", "router drops the line", nil)

	next, _ := m.Update(spinner.TickMsg{})
	view := next.View()
	assert.Contains(t, view, "Reconnecting")
	assert.Contains(t, view, "router drops the line")
}

func TestRunWaitWithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	result, _, err := RunWait(context.Background(), &out, "Waiting", "", func(ctx context.Context) (string, error) {
		return "Done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "Done", result)
	assert.Empty(t, out.String())
}
