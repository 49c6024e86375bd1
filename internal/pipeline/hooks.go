package pipeline

import (
	"time"

	"github.com/drblury/abrflow/internal/runtime/logging"
)

// BatchContext describes one batch to hooks.
type BatchContext struct {
	RunID  string
	Source string
	// Index counts batches across the whole run, starting at 1.
	Index     int
	Size      int
	StartedAt time.Time
	// The fields below are only set in OnBatchDone.
	Duration  time.Duration
	Accepted  int
	Rejected  int
	Unmatched int
}

// Hooks are optional callbacks around batch processing. Nil hooks are not
// called. All hooks run on the emitting goroutine.
type Hooks struct {
	OnBatchStart func(ctx BatchContext)
	OnBatchDone  func(ctx BatchContext)
	// OnRejected is called once per rejected span, in input order.
	OnRejected func(ctx BatchContext, out Outcome)
}

// Merge returns hooks calling h first and then other.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnBatchStart: chainBatchHooks(h.OnBatchStart, other.OnBatchStart),
		OnBatchDone:  chainBatchHooks(h.OnBatchDone, other.OnBatchDone),
		OnRejected:   chainRejectHooks(h.OnRejected, other.OnRejected),
	}
}

func chainBatchHooks(a, b func(BatchContext)) func(BatchContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx BatchContext) {
		a(ctx)
		b(ctx)
	}
}

func chainRejectHooks(a, b func(BatchContext, Outcome)) func(BatchContext, Outcome) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx BatchContext, out Outcome) {
		a(ctx, out)
		b(ctx, out)
	}
}

// LoggingHooks logs batch boundaries at debug level.
func LoggingHooks(logger logging.ServiceLogger) Hooks {
	return Hooks{
		OnBatchStart: func(ctx BatchContext) {
			logger.Debug("Batch started", logging.LogFields{
				"source": ctx.Source,
				"batch":  ctx.Index,
				"size":   ctx.Size,
			})
		},
		OnBatchDone: func(ctx BatchContext) {
			logger.Debug("Batch done", logging.LogFields{
				"source":      ctx.Source,
				"batch":       ctx.Index,
				"accepted":    ctx.Accepted,
				"rejected":    ctx.Rejected,
				"unmatched":   ctx.Unmatched,
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
	}
}

// MetricsHooks feeds batch results into m.
func MetricsHooks(m *Metrics) Hooks {
	return Hooks{
		OnBatchStart: func(ctx BatchContext) {
			m.BatchStarted(ctx.Size)
		},
		OnBatchDone: func(ctx BatchContext) {
			m.BatchDone(ctx.Accepted, ctx.Unmatched, ctx.Duration)
		},
		OnRejected: func(_ BatchContext, out Outcome) {
			m.Rejected(out.Err)
		},
	}
}
