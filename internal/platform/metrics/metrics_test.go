package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRequest("/enroll", 200, 10*time.Millisecond)
	m.ObserveRequest("/enroll", 409, 5*time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObserveRequest("/status", 200, time.Millisecond) })
}
