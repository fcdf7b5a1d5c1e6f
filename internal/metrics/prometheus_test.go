package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRouterRequest(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())

	r.RecordRouterRequest("login", "ok", 0.01)
	r.RecordRouterRequest("login", "status", 0.02)
	r.RecordRouterRequest("login", "ok", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.RouterRequests.WithLabelValues("login", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RouterRequests.WithLabelValues("login", "status")))
}

func TestRecordJobFinished(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())

	r.RecordJobFinished(true, 6)
	r.RecordJobFinished(false, 1.2)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.JobsFinished.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.JobsFinished.WithLabelValues("error")))
}

func TestRecordAPIRequest(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())

	r.RecordAPIRequest("GET", "/api/echo/{id}", 404, 0.001)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.APIRequests.WithLabelValues("GET", "/api/echo/{id}", "404")))
}

func TestGet_ReturnsSameInstance(t *testing.T) {
	assert.Same(t, Get(), Get())
}
