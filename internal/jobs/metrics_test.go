package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	_ = m.Track("credit:recovery_scan").End(nil)
	err := m.Track("credit:recovery_scan").End(errors.New("boom"))

	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("credit:recovery_scan", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("credit:recovery_scan", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("credit:recovery_scan")))
}

func TestSetRecoveryBacklog(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetRecoveryBacklog(3, 7)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.overdue))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.dues))

	var nilMetrics *Metrics
	nilMetrics.SetRecoveryBacklog(1, 1)
}
