package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/aretw0/scriptdeck/pkg/domain"
)

func TestObserveCountsTransitions(t *testing.T) {
	m := New()

	m.Observe(domain.StatusEvent{State: domain.StateRunning})
	m.Observe(domain.StatusEvent{State: domain.StateRunning})
	m.Observe(domain.StatusEvent{State: domain.StateSuccess})
	m.Observe(domain.StatusEvent{State: domain.StateFailed})
	m.Observe(domain.StatusEvent{State: domain.StateIdle})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsSettled.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsSettled.WithLabelValues("failed")))
}

func TestSetPool(t *testing.T) {
	m := New()

	m.SetPool(domain.PoolCounts{Total: 5, Running: 2})
	assert.Equal(t, 5.0, testutil.ToFloat64(m.poolTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.poolRunning))
}

func TestPoolOverflow(t *testing.T) {
	m := New()

	m.PoolOverflow(9, 8)
	m.PoolOverflow(10, 8)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.poolOverflow))
}
