package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestUpdateCircuitBreakerState(t *testing.T) {
	UpdateCircuitBreakerState("backend", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("backend")))

	UpdateCircuitBreakerState("backend", 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("backend")))
}

func TestSessionMetrics_EndIsIdempotent(t *testing.T) {
	before := testutil.ToFloat64(sessionOutcomes.WithLabelValues("ended"))

	m := NewSessionMetrics()
	m.RecordPoll()
	m.RecordEnd("ended")
	m.RecordEnd("ended")

	assert.Equal(t, before+1, testutil.ToFloat64(sessionOutcomes.WithLabelValues("ended")))
}
