package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/wanctl/internal/logging"
	"github.com/muurk/wanctl/internal/metrics"
	"github.com/muurk/wanctl/internal/router"
)

// DoneMessage is the terminal message of a reconnect that succeeded.
const DoneMessage = "Done"

const (
	// DefaultSettleDelay is waited before acting so a just-issued state
	// change on the router has landed.
	DefaultSettleDelay = 1 * time.Second

	// DefaultOutageDelay is how long the link stays down between disconnect
	// and connect; the router needs it to tear down the PPPoE session.
	DefaultOutageDelay = 5 * time.Second
)

// Device is the part of the router client the runner drives.
type Device interface {
	Login(ctx context.Context, password string) (string, error)
	SetWANState(ctx context.Context, stok string, op router.Operation) error
}

// Delays holds the device timing assumptions of a reconnect.
type Delays struct {
	Settle time.Duration
	Outage time.Duration
}

// DefaultDelays returns the delays the router is known to need.
func DefaultDelays() Delays {
	return Delays{Settle: DefaultSettleDelay, Outage: DefaultOutageDelay}
}

// Step names a stage of the reconnect sequence.
type Step string

const (
	StepSettle     Step = "settle"
	StepLogin      Step = "login"
	StepDisconnect Step = "disconnect"
	StepOutage     Step = "outage"
	StepConnect    Step = "connect"
)

// Steps lists the reconnect stages in execution order.
var Steps = []Step{StepSettle, StepLogin, StepDisconnect, StepOutage, StepConnect}

// StepStatus is reported to a StepFunc as a stage progresses.
type StepStatus int

const (
	StepStarted StepStatus = iota
	StepSucceeded
	StepFailed
)

// StepFunc observes reconnect progress. message is the flat error text for
// StepFailed and empty otherwise.
type StepFunc func(step Step, status StepStatus, message string)

// Runner starts reconnect jobs and tracks their results in a Registry.
type Runner struct {
	registry *Registry
	device   Device
	password string
	delays   Delays
	metrics  *metrics.Registry

	// sleep and newID are replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
	newID func() string

	wg sync.WaitGroup
}

// NewRunner creates a runner that logs in with password on every job.
func NewRunner(registry *Registry, device Device, password string, delays Delays) *Runner {
	return &Runner{
		registry: registry,
		device:   device,
		password: password,
		delays:   delays,
		metrics:  metrics.Get(),
		sleep:    sleepContext,
		newID:    uuid.NewString,
	}
}

// Registry returns the registry jobs are tracked in.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// StartReconnect starts a background reconnect and returns its identifier
// immediately. The result is registered before the job goroutine starts, so
// a poll issued right after this call always finds the entry.
//
// Started jobs cannot be cancelled; they run to completion or process exit.
func (r *Runner) StartReconnect() string {
	id := r.newID()
	res := NewResult()
	r.registry.Register(id, res)

	if r.metrics != nil {
		r.metrics.JobsStarted.Inc()
	}
	logging.LogJobEvent(id, "started")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		start := time.Now()

		msg := r.Reconnect(context.Background(), func(step Step, status StepStatus, message string) {
			if status == StepFailed {
				logging.LogJobEvent(id, "step_failed",
					zap.String("step", string(step)),
					zap.String("error", message),
				)
			}
		})

		res.Resolve(msg)

		elapsed := time.Since(start)
		if r.metrics != nil {
			r.metrics.RecordJobFinished(msg == DoneMessage, elapsed.Seconds())
		}
		logging.LogJobEvent(id, "finished",
			zap.String("result", msg),
			zap.Duration("duration", elapsed),
		)
	}()

	return id
}

// Reconnect runs settle, login, disconnect, outage, connect in order and
// returns the terminal message: DoneMessage, or the text of the first
// failure. A failure skips every later step; nothing is retried and no
// compensating connect is sent after a failed disconnect.
func (r *Runner) Reconnect(ctx context.Context, onStep StepFunc) string {
	if onStep == nil {
		onStep = func(Step, StepStatus, string) {}
	}

	var stok string
	steps := []struct {
		step Step
		run  func() error
	}{
		{StepSettle, func() error { return r.sleep(ctx, r.delays.Settle) }},
		{StepLogin, func() (err error) {
			stok, err = r.device.Login(ctx, r.password)
			return err
		}},
		{StepDisconnect, func() error { return r.device.SetWANState(ctx, stok, router.Disconnect) }},
		{StepOutage, func() error { return r.sleep(ctx, r.delays.Outage) }},
		{StepConnect, func() error { return r.device.SetWANState(ctx, stok, router.Connect) }},
	}

	for _, s := range steps {
		onStep(s.step, StepStarted, "")
		if err := s.run(); err != nil {
			msg := router.Message(err)
			onStep(s.step, StepFailed, msg)
			return msg
		}
		onStep(s.step, StepSucceeded, "")
	}
	return DoneMessage
}

// Wait blocks until every background job started so far has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
