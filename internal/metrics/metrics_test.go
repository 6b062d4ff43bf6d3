package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserverRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	o.RecordRequest("echo", OutcomeOK)
	o.RecordRequest("echo", OutcomeOK)
	o.RecordRequest("echo", OutcomeTooLarge)
	o.RecordRelayed(1024)
	o.RecordPrepare(20*time.Millisecond, nil)
	o.RecordPrepare(10*time.Millisecond, errors.New("quota"))

	assert.Equal(t, 2.0, testutil.ToFloat64(o.requests.WithLabelValues("echo", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.requests.WithLabelValues("echo", OutcomeTooLarge)))
	assert.Equal(t, 1024.0, testutil.ToFloat64(o.relayedBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.prepareErrors))
}

func TestPrometheusObserverReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)
	second, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	second.RecordRelayed(5)
	assert.Equal(t, 5.0, testutil.ToFloat64(first.relayedBytes))
}

func TestNilObserverIsSafe(t *testing.T) {
	var o *PrometheusObserver
	assert.NotPanics(t, func() {
		o.RecordRequest("echo", OutcomeOK)
		o.RecordRelayed(1)
		o.RecordPrepare(time.Second, nil)
	})
}
