package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/abrflow/internal/runtime/config"
	errspkg "github.com/drblury/abrflow/internal/runtime/errors"
	"github.com/drblury/abrflow/internal/runtime/jsoncodec"
	"github.com/drblury/abrflow/internal/runtime/logging"
	"github.com/drblury/abrflow/transport"
)

// Sink receives the outcomes of one batch, in input order. Emit is never
// called concurrently and must have written everything before it returns.
type Sink interface {
	Emit(ctx context.Context, runID string, outcomes []Outcome) error
	Close() error
}

// WriterSink writes accepted records as line-delimited JSON. Rejections are
// reported by the pipeline's diagnostics and not written here.
type WriterSink struct {
	buf *bufio.Writer
	lw  *jsoncodec.LineWriter
}

// NewWriterSink writes to w, typically stdout.
func NewWriterSink(w io.Writer) (*WriterSink, error) {
	if w == nil {
		return nil, errspkg.ErrWriterRequired
	}
	buf := bufio.NewWriterSize(w, 1<<20)
	return &WriterSink{buf: buf, lw: jsoncodec.NewLineWriter(buf)}, nil
}

func (s *WriterSink) Emit(_ context.Context, _ string, outcomes []Outcome) error {
	for _, out := range outcomes {
		if !out.Accepted() {
			continue
		}
		if err := s.lw.WriteValue(out.Record); err != nil {
			return fmt.Errorf("write record from %s:%d: %w", out.Span.Source, out.Span.Line, err)
		}
	}
	return s.buf.Flush()
}

// Close flushes buffered output. It does not close the underlying writer.
func (s *WriterSink) Close() error {
	return s.buf.Flush()
}

// PublisherSink publishes accepted records, and optionally rejections, on a
// Watermill publisher.
type PublisherSink struct {
	publisher       message.Publisher
	caps            transport.Capabilities
	encoding        string
	recordsTopic    string
	rejectionsTopic string
	logger          logging.ServiceLogger
}

// PublisherSinkConfig configures a PublisherSink.
type PublisherSinkConfig struct {
	Encoding     string
	RecordsTopic string
	// RejectionsTopic is optional. When empty, rejections are only logged.
	RejectionsTopic string
	Capabilities    transport.Capabilities
}

// NewPublisherSink wraps publisher. A transport that does not keep
// ordering is accepted with a warning.
func NewPublisherSink(publisher message.Publisher, cfg PublisherSinkConfig, logger logging.ServiceLogger) (*PublisherSink, error) {
	if publisher == nil {
		return nil, errspkg.ErrPublisherRequired
	}
	if cfg.RecordsTopic == "" {
		return nil, errspkg.ErrTopicRequired
	}
	if logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if cfg.Encoding == "" {
		cfg.Encoding = config.EncodingJSON
	}
	if cfg.Capabilities.Name != "" && !cfg.Capabilities.SupportsOrdering {
		logger.Info("Sink does not preserve record order", logging.LogFields{"transport": cfg.Capabilities.Name})
	}
	return &PublisherSink{
		publisher:       publisher,
		caps:            cfg.Capabilities,
		encoding:        cfg.Encoding,
		recordsTopic:    cfg.RecordsTopic,
		rejectionsTopic: cfg.RejectionsTopic,
		logger:          logger,
	}, nil
}

func (s *PublisherSink) Emit(_ context.Context, runID string, outcomes []Outcome) error {
	records := make([]*message.Message, 0, len(outcomes))
	var rejections []*message.Message

	for _, out := range outcomes {
		if !out.Accepted() {
			if s.rejectionsTopic == "" {
				continue
			}
			msg, err := newRejectionMessage(runID, out)
			if err != nil {
				return err
			}
			rejections = append(rejections, msg)
			continue
		}

		msg, err := newRecordMessage(runID, out, s.encoding)
		if err != nil {
			return fmt.Errorf("encode record from %s:%d: %w", out.Span.Source, out.Span.Line, err)
		}
		if !s.caps.Fits(len(msg.Payload)) {
			s.logger.Error("Record exceeds transport message size", nil, logging.LogFields{
				"source": out.Span.Source,
				"line":   out.Span.Line,
				"abn":    out.Record.ABN,
				"bytes":  len(msg.Payload),
			})
			continue
		}
		records = append(records, msg)
	}

	if err := s.publish(s.recordsTopic, records); err != nil {
		return err
	}
	return s.publish(s.rejectionsTopic, rejections)
}

func (s *PublisherSink) publish(topic string, msgs []*message.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if s.caps.SupportsBatching {
		if err := s.publisher.Publish(topic, msgs...); err != nil {
			return fmt.Errorf("publish %d messages to %s: %w", len(msgs), topic, err)
		}
		return nil
	}
	for _, msg := range msgs {
		if err := s.publisher.Publish(topic, msg); err != nil {
			return fmt.Errorf("publish %s to %s: %w", msg.UUID, topic, err)
		}
	}
	return nil
}

// Close closes the publisher.
func (s *PublisherSink) Close() error {
	return s.publisher.Close()
}

// NewSink builds the sink named by cfg.Sink. "stdout" writes to w; any
// other name is built through the transport registry.
func NewSink(ctx context.Context, cfg *config.Config, w io.Writer, logger logging.ServiceLogger) (Sink, error) {
	if cfg == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if cfg.Sink == "" || cfg.Sink == config.DefaultSink {
		return NewWriterSink(w)
	}

	tr, err := transport.Build(ctx, cfg, logging.NewWatermillAdapter(logger))
	if err != nil {
		return nil, err
	}
	return NewPublisherSink(tr.Publisher, PublisherSinkConfig{
		Encoding:        cfg.Encoding,
		RecordsTopic:    cfg.RecordsTopic,
		RejectionsTopic: cfg.RejectionsTopic,
		Capabilities:    transport.GetCapabilities(cfg.Sink),
	}, logger)
}
