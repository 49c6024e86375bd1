// Package pipeline drives record processing: it splits container files into
// spans, processes each batch in parallel and emits outcomes in input order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/abrflow/internal/runtime/config"
	errspkg "github.com/drblury/abrflow/internal/runtime/errors"
	"github.com/drblury/abrflow/internal/runtime/ids"
	"github.com/drblury/abrflow/internal/runtime/logging"
)

const tracerName = "github.com/drblury/abrflow/internal/pipeline"

// Summary totals one run.
type Summary struct {
	RunID     string
	Sources   int
	Batches   int
	Spans     int
	Accepted  int
	Rejected  int
	Unmatched int
	Duration  time.Duration
}

// Pipeline processes sources batch by batch. It is not safe for concurrent
// Run calls.
type Pipeline struct {
	conf    *config.Config
	sink    Sink
	logger  logging.ServiceLogger
	hooks   Hooks
	tracer  trace.Tracer
	workers int
	batch   int

	runID   string
	batches int
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithHooks adds hooks, merged after any already set.
func WithHooks(h Hooks) Option {
	return func(p *Pipeline) {
		p.hooks = p.hooks.Merge(h)
	}
}

// WithMetrics records batch results in m.
func WithMetrics(m *Metrics) Option {
	return WithHooks(MetricsHooks(m))
}

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = t
	}
}

// WithRunID fixes the run id stamped on published messages.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		p.runID = id
	}
}

// New validates conf and returns a pipeline emitting to sink.
func New(conf *config.Config, sink Sink, logger logging.ServiceLogger, opts ...Option) (*Pipeline, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if sink == nil {
		return nil, errspkg.ErrSinkRequired
	}
	if logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}

	p := &Pipeline{
		conf:    conf,
		sink:    sink,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		workers: WorkerCount(conf.Workers),
		batch:   BatchLimit(conf.BatchSize, conf.MemoryBudgetMB),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runID == "" {
		p.runID = ids.NewRunID()
	}

	logger.Debug("Pipeline configured", logging.LogFields{
		"run_id":  p.runID,
		"workers": p.workers,
		"batch":   p.batch,
		"sink":    conf.Sink,
	})
	return p, nil
}

// RunID identifies this pipeline's output.
func (p *Pipeline) RunID() string { return p.runID }

// RunFiles processes each path in order. Opening or reading a file fails
// the run; rejected records never do.
func (p *Pipeline) RunFiles(ctx context.Context, paths []string) (Summary, error) {
	if len(paths) == 0 {
		return Summary{}, errspkg.ErrInputRequired
	}

	started := time.Now()
	total := Summary{RunID: p.runID}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return p.finish(total, started), fmt.Errorf("open input: %w", err)
		}
		sum, err := p.Run(ctx, path, f)
		f.Close()
		total = total.add(sum)
		if err != nil {
			return p.finish(total, started), err
		}
	}
	return p.finish(total, started), nil
}

// Run processes one container read from r. source names it in diagnostics.
// Cancellation is checked between batches.
func (p *Pipeline) Run(ctx context.Context, source string, r io.Reader) (Summary, error) {
	started := time.Now()
	ctx, span := p.tracer.Start(ctx, "ProcessSource", trace.WithAttributes(
		attribute.String("abrflow.source", source),
		attribute.String("abrflow.run_id", p.runID),
	))
	defer span.End()

	sum := Summary{RunID: p.runID, Sources: 1}
	reader, err := NewSpanReader(r, source, ReaderOptions{
		HeaderLines:  p.conf.HeaderLines,
		CloseMarker:  p.conf.CloseMarker,
		Charset:      p.conf.Charset,
		MaxLineBytes: p.conf.MaxLineBytes,
	})
	if err != nil {
		return sum, p.fail(span, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return p.finish(sum, started), p.fail(span, err)
		}

		spans, readErr := reader.Next(p.batch)
		if errors.Is(readErr, io.EOF) {
			break
		}
		if len(spans) > 0 {
			batch, err := p.runBatch(ctx, source, spans)
			sum = sum.add(batch)
			if err != nil {
				return p.finish(sum, started), p.fail(span, err)
			}
		}
		if readErr != nil {
			return p.finish(sum, started), p.fail(span, readErr)
		}
	}

	sum = p.finish(sum, started)
	span.SetAttributes(
		attribute.Int("abrflow.accepted", sum.Accepted),
		attribute.Int("abrflow.rejected", sum.Rejected),
	)
	p.logger.Info("Source processed", logging.LogFields{
		"source":      source,
		"accepted":    sum.Accepted,
		"rejected":    sum.Rejected,
		"unmatched":   sum.Unmatched,
		"duration_ms": sum.Duration.Milliseconds(),
	})
	return sum, nil
}

// ProcessSpans processes spans as one batch without emitting them.
func (p *Pipeline) ProcessSpans(spans []Span) []Outcome {
	return processBatch(spans, p.workers)
}

func (p *Pipeline) runBatch(ctx context.Context, source string, spans []Span) (Summary, error) {
	p.batches++
	bctx := BatchContext{
		RunID:     p.runID,
		Source:    source,
		Index:     p.batches,
		Size:      len(spans),
		StartedAt: time.Now(),
	}

	ctx, span := p.tracer.Start(ctx, "ProcessBatch", trace.WithAttributes(
		attribute.String("abrflow.source", source),
		attribute.Int("abrflow.batch", bctx.Index),
		attribute.Int("abrflow.batch_size", bctx.Size),
	))
	defer span.End()

	if p.hooks.OnBatchStart != nil {
		p.hooks.OnBatchStart(bctx)
	}

	outcomes := processBatch(spans, p.workers)

	sum := Summary{Batches: 1, Spans: len(spans)}
	for _, out := range outcomes {
		sum.Unmatched += p.reportUnrouted(out)
		if out.Accepted() {
			sum.Accepted++
			continue
		}
		sum.Rejected++
		p.reportRejected(out)
		if p.hooks.OnRejected != nil {
			p.hooks.OnRejected(bctx, out)
		}
	}

	if err := p.sink.Emit(ctx, p.runID, outcomes); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return sum, fmt.Errorf("emit batch %d of %s: %w", bctx.Index, source, err)
	}

	bctx.Duration = time.Since(bctx.StartedAt)
	bctx.Accepted = sum.Accepted
	bctx.Rejected = sum.Rejected
	bctx.Unmatched = sum.Unmatched
	if p.hooks.OnBatchDone != nil {
		p.hooks.OnBatchDone(bctx)
	}
	return sum, nil
}

func (p *Pipeline) reportRejected(out Outcome) {
	fields := logging.LogFields{
		"source": out.Span.Source,
		"line":   out.Span.Line,
		"kind":   errspkg.KindOf(out.Err).String(),
	}
	var rec *errspkg.RecordError
	if errors.As(out.Err, &rec) {
		fields["rule"] = rec.Rule
		if len(rec.Path) > 0 {
			fields["path"] = rec.Path
		}
	}
	p.logger.Error("Record rejected", out.Err, fields)
}

func (p *Pipeline) reportUnrouted(out Outcome) int {
	for _, u := range out.Unrouted {
		p.logger.Info(u.String(), logging.LogFields{
			"source": out.Span.Source,
			"line":   out.Span.Line,
		})
	}
	return len(out.Unrouted)
}

func (p *Pipeline) finish(sum Summary, started time.Time) Summary {
	sum.RunID = p.runID
	sum.Duration = time.Since(started)
	return sum
}

func (p *Pipeline) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s Summary) add(o Summary) Summary {
	s.Sources += o.Sources
	s.Batches += o.Batches
	s.Spans += o.Spans
	s.Accepted += o.Accepted
	s.Rejected += o.Rejected
	s.Unmatched += o.Unmatched
	return s
}
