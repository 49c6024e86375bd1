package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/abrflow/internal/runtime/errors"
	"github.com/drblury/abrflow/internal/runtime/logging"
)

func TestHooksMergeOrder(t *testing.T) {
	var calls []string
	first := Hooks{
		OnBatchStart: func(BatchContext) { calls = append(calls, "first start") },
		OnRejected:   func(BatchContext, Outcome) { calls = append(calls, "first rejected") },
	}
	second := Hooks{
		OnBatchStart: func(BatchContext) { calls = append(calls, "second start") },
		OnBatchDone:  func(BatchContext) { calls = append(calls, "second done") },
	}

	merged := first.Merge(second)
	merged.OnBatchStart(BatchContext{})
	merged.OnBatchDone(BatchContext{})
	merged.OnRejected(BatchContext{}, Outcome{})

	assert.Equal(t, []string{"first start", "second start", "second done", "first rejected"}, calls)
}

func TestHooksMergeEmpty(t *testing.T) {
	merged := Hooks{}.Merge(Hooks{})
	assert.Nil(t, merged.OnBatchStart)
	assert.Nil(t, merged.OnBatchDone)
	assert.Nil(t, merged.OnRejected)
}

type recordingLogger struct {
	debug []string
}

func (r *recordingLogger) With(logging.LogFields) logging.ServiceLogger { return r }
func (r *recordingLogger) Debug(msg string, _ logging.LogFields)        { r.debug = append(r.debug, msg) }
func (r *recordingLogger) Info(string, logging.LogFields)               {}
func (r *recordingLogger) Error(string, error, logging.LogFields)       {}
func (r *recordingLogger) Trace(string, logging.LogFields)              {}

func TestLoggingHooks(t *testing.T) {
	logger := &recordingLogger{}
	hooks := LoggingHooks(logger)

	hooks.OnBatchStart(BatchContext{Source: "f", Index: 1, Size: 3})
	hooks.OnBatchDone(BatchContext{Source: "f", Index: 1, Accepted: 3})

	assert.Equal(t, []string{"Batch started", "Batch done"}, logger.debug)
	assert.Nil(t, hooks.OnRejected)
}

func TestMetricsHooks(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, m.Register())
	hooks := MetricsHooks(m)

	hooks.OnBatchStart(BatchContext{Size: 4})
	assert.Equal(t, 4.0, testutil.ToFloat64(m.batchSize))

	hooks.OnRejected(BatchContext{}, Outcome{Err: errspkg.Missing("abn")})
	hooks.OnRejected(BatchContext{}, Outcome{Err: errors.New("plain")})
	hooks.OnBatchDone(BatchContext{Accepted: 2, Unmatched: 5, Duration: time.Second})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.recordsTotal.WithLabelValues("accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.recordsTotal.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectionsTotal.WithLabelValues("missing_field")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectionsTotal.WithLabelValues("unknown")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.unmatchedTotal))
}
