package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/wanctl/internal/metrics"
	"github.com/muurk/wanctl/internal/router"
)

// fakeDevice records calls and fails the configured ones.
type fakeDevice struct {
	mu      sync.Mutex
	calls   []string
	errs    map[string]error
	release chan struct{} // when non-nil, Login blocks until closed
}

func (d *fakeDevice) Login(ctx context.Context, password string) (string, error) {
	if d.release != nil {
		<-d.release
	}
	d.record("login:" + password)
	if err := d.errs["login"]; err != nil {
		return "", err
	}
	return "abc", nil
}

func (d *fakeDevice) SetWANState(ctx context.Context, stok string, op router.Operation) error {
	d.record(fmt.Sprintf("%s:%s", op, stok))
	return d.errs[string(op)]
}

func (d *fakeDevice) record(call string) {
	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()
}

func (d *fakeDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func newTestRunner(device Device) (*Runner, *metrics.Registry) {
	m := metrics.NewRegistry(prometheus.NewRegistry())
	r := NewRunner(newRegistry(m), device, "pw", Delays{})
	r.metrics = m
	return r, m
}

func TestResult_ResolvesOnce(t *testing.T) {
	res := NewResult()

	_, ok := res.Peek()
	assert.False(t, ok)

	assert.True(t, res.Resolve("Done"))
	assert.False(t, res.Resolve("second"))

	msg, err := res.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Done", msg)

	msg, ok = res.Peek()
	assert.True(t, ok)
	assert.Equal(t, "Done", msg)
}

func TestResult_WaitHonoursContext(t *testing.T) {
	res := NewResult()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := res.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistry_PollUnknownReturnsImmediately(t *testing.T) {
	reg := newRegistry(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		msg, found, err := reg.Poll(context.Background(), "missing")
		assert.False(t, found)
		assert.Empty(t, msg)
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Poll on an unknown id blocked")
	}
}

func TestRegistry_SingleDelivery(t *testing.T) {
	reg := newRegistry(nil)
	res := NewResult()
	reg.Register("J1", res)
	res.Resolve("Done")

	msg, found, err := reg.Poll(context.Background(), "J1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Done", msg)
	assert.Equal(t, 0, reg.Len())

	msg, found, err = reg.Poll(context.Background(), "J1")
	require.NoError(t, err)
	assert.False(t, found, "second poll must report not found")
	assert.Empty(t, msg)
}

func TestRegistry_WaitDoesNotHoldLock(t *testing.T) {
	reg := newRegistry(nil)
	slow := NewResult()
	reg.Register("slow", slow)

	polled := make(chan string)
	go func() {
		msg, _, _ := reg.Poll(context.Background(), "slow")
		polled <- msg
	}()

	// While the first poller waits, unrelated registrations and polls proceed.
	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, time.Millisecond)
	fast := NewResult()
	reg.Register("fast", fast)
	fast.Resolve("fast done")
	msg, found, err := reg.Poll(context.Background(), "fast")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "fast done", msg)

	slow.Resolve("slow done")
	assert.Equal(t, "slow done", <-polled)
}

func TestRegistry_AbandonedPollRestoresEntry(t *testing.T) {
	reg := newRegistry(nil)
	res := NewResult()
	reg.Register("J1", res)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, found, err := reg.Poll(ctx, "J1")
	assert.True(t, found)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, reg.Len())

	res.Resolve("Done")
	msg, found, err := reg.Poll(context.Background(), "J1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Done", msg)
}

func TestRegistry_PendingGauge(t *testing.T) {
	m := metrics.NewRegistry(prometheus.NewRegistry())
	reg := newRegistry(m)

	reg.Register("a", NewResult())
	reg.Register("b", NewResult())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobsPending))

	reg.Take("a")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsPending))
}

func TestReconnect_AllStepsSucceed(t *testing.T) {
	device := &fakeDevice{}
	runner, _ := newTestRunner(device)

	var events []string
	msg := runner.Reconnect(context.Background(), func(step Step, status StepStatus, message string) {
		if status == StepSucceeded {
			events = append(events, string(step))
		}
	})

	assert.Equal(t, DoneMessage, msg)
	assert.Equal(t, []string{"login:pw", "disconnect:abc", "connect:abc"}, device.Calls())
	assert.Equal(t, []string{"settle", "login", "disconnect", "outage", "connect"}, events)
}

func TestReconnect_LoginFailureSkipsEverything(t *testing.T) {
	device := &fakeDevice{errs: map[string]error{"login": errors.New("HTTP status 401 Unauthorized")}}
	runner, _ := newTestRunner(device)

	msg := runner.Reconnect(context.Background(), nil)

	assert.Equal(t, "HTTP status 401 Unauthorized", msg)
	assert.Equal(t, []string{"login:pw"}, device.Calls())
}

func TestReconnect_DisconnectFailureNeverConnects(t *testing.T) {
	device := &fakeDevice{errs: map[string]error{"disconnect": errors.New("error sending request: connection refused")}}
	runner, _ := newTestRunner(device)

	var slept []time.Duration
	runner.delays = Delays{Settle: time.Second, Outage: 5 * time.Second}
	runner.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	var failed Step
	msg := runner.Reconnect(context.Background(), func(step Step, status StepStatus, message string) {
		if status == StepFailed {
			failed = step
		}
	})

	assert.Equal(t, "error sending request: connection refused", msg)
	assert.Equal(t, StepDisconnect, failed)
	assert.Equal(t, []string{"login:pw", "disconnect:abc"}, device.Calls())
	assert.Equal(t, []time.Duration{time.Second}, slept, "outage delay must be skipped")
}

func TestReconnect_ConnectFailure(t *testing.T) {
	device := &fakeDevice{errs: map[string]error{"connect": errors.New("HTTP status 500 Internal Server Error")}}
	runner, _ := newTestRunner(device)

	msg := runner.Reconnect(context.Background(), nil)

	assert.Equal(t, "HTTP status 500 Internal Server Error", msg)
	assert.Equal(t, []string{"login:pw", "disconnect:abc", "connect:abc"}, device.Calls())
}

func TestReconnect_UsesConfiguredDelays(t *testing.T) {
	runner, _ := newTestRunner(&fakeDevice{})
	runner.delays = Delays{Settle: time.Second, Outage: 5 * time.Second}

	var slept []time.Duration
	runner.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	assert.Equal(t, DoneMessage, runner.Reconnect(context.Background(), nil))
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second}, slept)
}

func TestStartReconnect_RegisteredBeforeJobRuns(t *testing.T) {
	device := &fakeDevice{release: make(chan struct{})}
	runner, _ := newTestRunner(device)
	runner.newID = func() string { return "J1" }

	id := runner.StartReconnect()
	require.Equal(t, "J1", id)

	// The job is parked in Login, so the entry must already be there.
	res, ok := runner.Registry().Take(id)
	require.True(t, ok)
	_, resolved := res.Peek()
	assert.False(t, resolved)
	runner.Registry().Register(id, res)

	close(device.release)
	msg, found, err := runner.Registry().Poll(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, DoneMessage, msg)

	_, found, _ = runner.Registry().Poll(context.Background(), id)
	assert.False(t, found)
	runner.Wait()
}

func TestStartReconnect_ErrorIsTheResult(t *testing.T) {
	device := &fakeDevice{errs: map[string]error{"disconnect": errors.New("HTTP status 403 Forbidden")}}
	runner, m := newTestRunner(device)

	id := runner.StartReconnect()
	msg, found, err := runner.Registry().Poll(context.Background(), id)

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "HTTP status 403 Forbidden", msg)

	runner.Wait()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsFinished.WithLabelValues("error")))
}

func TestStartReconnect_ConcurrentJobsAreIndependent(t *testing.T) {
	const n = 50
	device := &fakeDevice{}
	runner, _ := newTestRunner(device)

	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = runner.StartReconnect()
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate job id %s", id)
		seen[id] = true
	}

	for _, id := range ids {
		msg, found, err := runner.Registry().Poll(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, DoneMessage, msg)
	}
	runner.Wait()
	assert.Equal(t, 0, runner.Registry().Len())
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
