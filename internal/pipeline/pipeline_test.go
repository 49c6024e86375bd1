package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/abrflow/internal/record"
	"github.com/drblury/abrflow/internal/runtime/config"
	errspkg "github.com/drblury/abrflow/internal/runtime/errors"
	"github.com/drblury/abrflow/internal/runtime/logging"
	"github.com/drblury/abrflow/transport/channel"
	"github.com/drblury/abrflow/transport/transporttest"
)

func newTestPipeline(t *testing.T, cfg *config.Config, sink Sink, opts ...Option) *Pipeline {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	p, err := New(cfg, sink, logging.NewNopLogger(), opts...)
	require.NoError(t, err)
	return p
}

func TestNewValidation(t *testing.T) {
	logger := logging.NewNopLogger()
	sink := &WriterSink{}

	_, err := New(nil, sink, logger)
	assert.ErrorIs(t, err, errspkg.ErrConfigRequired)
	_, err = New(config.Default(), nil, logger)
	assert.ErrorIs(t, err, errspkg.ErrSinkRequired)
	_, err = New(config.Default(), sink, nil)
	assert.ErrorIs(t, err, errspkg.ErrLoggerRequired)

	bad := config.Default()
	bad.Workers = -1
	_, err = New(bad, sink, logger)
	var cfgErr errspkg.ConfigValidationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRunIsolatesRejections(t *testing.T) {
	var out bytes.Buffer
	sink, err := NewWriterSink(&out)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.BatchSize = 2
	cfg.Workers = 3

	var rejected []int
	var batches []BatchContext
	p := newTestPipeline(t, cfg, sink, WithHooks(Hooks{
		OnRejected:  func(_ BatchContext, o Outcome) { rejected = append(rejected, o.Span.Line) },
		OnBatchDone: func(b BatchContext) { batches = append(batches, b) },
	}))

	input := container(companySpan("1"), malformedSpan, companySpan("2"), missingABNSpan, companySpan("3"))
	sum, err := p.Run(context.Background(), "Public01.xml", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Sources)
	assert.Equal(t, 3, sum.Batches)
	assert.Equal(t, 5, sum.Spans)
	assert.Equal(t, 3, sum.Accepted)
	assert.Equal(t, 2, sum.Rejected)
	assert.Equal(t, p.RunID(), sum.RunID)
	assert.Equal(t, []int{6, 8}, rejected)

	require.Len(t, batches, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{batches[0].Index, batches[1].Index, batches[2].Index})
	assert.Equal(t, 1, batches[2].Accepted)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	for i, abn := range []string{"1", "2", "3"} {
		var rec record.Record
		require.NoError(t, rec.UnmarshalJSON([]byte(lines[i])))
		assert.Equal(t, abn, rec.ABN)
	}
}

func TestRunPublishesThroughChannelTransport(t *testing.T) {
	tr, err := channel.Build(context.Background(), nil, watermill.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })

	sink, err := NewPublisherSink(tr.Publisher, PublisherSinkConfig{
		RecordsTopic:    "abr.records",
		RejectionsTopic: "abr.rejections",
		Capabilities:    channel.Capabilities(),
	}, logging.NewNopLogger())
	require.NoError(t, err)

	p := newTestPipeline(t, nil, sink, WithRunID("run-42"))
	input := container(companySpan("10"), missingABNSpan, companySpan("11"))
	sum, err := p.Run(context.Background(), "Public02.xml", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Accepted)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	records, err := tr.Subscriber.Subscribe(ctx, "abr.records")
	require.NoError(t, err)
	var got []string
	for range 2 {
		select {
		case msg := <-records:
			assert.Equal(t, "run-42", msg.Metadata.Get("abrflow_run_id"))
			rec, err := DecodeRecord(msg.Payload, msg.Metadata.Get("content_type"))
			require.NoError(t, err)
			assert.Equal(t, msg.Metadata.Get("abn"), rec.ABN)
			got = append(got, rec.ABN)
			msg.Ack()
		case <-ctx.Done():
			t.Fatalf("timed out waiting for records, got %v", got)
		}
	}
	assert.ElementsMatch(t, []string{"10", "11"}, got)

	rejections, err := tr.Subscriber.Subscribe(ctx, "abr.rejections")
	require.NoError(t, err)
	select {
	case msg := <-rejections:
		assert.Equal(t, "6", msg.Metadata.Get("abrflow_line"))
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("timed out waiting for rejection")
	}
}

func TestRunWithoutHeaderLines(t *testing.T) {
	var out bytes.Buffer
	sink, err := NewWriterSink(&out)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.HeaderLines = 0
	p := newTestPipeline(t, cfg, sink)

	input := strings.Join([]string{companySpan("1"), companySpan("2"), companySpan("3"), companySpan("4"), companySpan("5")}, "\n") + "\n"
	sum, err := p.Run(context.Background(), "bare.xml", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Spans)
	assert.Equal(t, 5, sum.Accepted)
	assert.Zero(t, sum.Rejected)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	var first record.Record
	require.NoError(t, first.UnmarshalJSON([]byte(lines[0])))
	assert.Equal(t, "1", first.ABN)
}

func TestRunRecordsMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, m.Register())

	sink, err := NewWriterSink(&bytes.Buffer{})
	require.NoError(t, err)
	p := newTestPipeline(t, nil, sink, WithMetrics(m))

	input := container(companySpan("1"), missingABNSpan, `<ABR><Surprise>x</Surprise></ABR>`)
	_, err = p.Run(context.Background(), "f", strings.NewReader(input))
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.Accepted)
	assert.Equal(t, uint64(2), snap.Rejected)
	assert.Equal(t, uint64(1), snap.Unmatched)
	assert.Equal(t, uint64(2), snap.ByKind["missing_field"])
}

func TestRunStopsOnEmitError(t *testing.T) {
	pub := &transporttest.Publisher{Err: errors.New("broker down")}
	sink, err := NewPublisherSink(pub, PublisherSinkConfig{RecordsTopic: "r"}, logging.NewNopLogger())
	require.NoError(t, err)

	p := newTestPipeline(t, nil, sink)
	_, err = p.Run(context.Background(), "f", strings.NewReader(container(companySpan("1"))))
	assert.ErrorContains(t, err, "emit batch 1 of f")
	assert.ErrorContains(t, err, "broker down")
}

func TestRunHonoursCancellation(t *testing.T) {
	sink, err := NewWriterSink(&bytes.Buffer{})
	require.NoError(t, err)
	p := newTestPipeline(t, nil, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := p.Run(ctx, "f", strings.NewReader(container(companySpan("1"))))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Spans)
}

func TestRunFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "Public01.xml")
	second := filepath.Join(dir, "Public02.xml")
	require.NoError(t, os.WriteFile(first, []byte(container(companySpan("1"), companySpan("2"))), 0o600))
	require.NoError(t, os.WriteFile(second, []byte(container(missingABNSpan, companySpan("3"))), 0o600))

	var out bytes.Buffer
	sink, err := NewWriterSink(&out)
	require.NoError(t, err)
	p := newTestPipeline(t, nil, sink)

	sum, err := p.RunFiles(context.Background(), []string{first, second})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Sources)
	assert.Equal(t, 4, sum.Spans)
	assert.Equal(t, 3, sum.Accepted)
	assert.Equal(t, 1, sum.Rejected)
	assert.Equal(t, 3, strings.Count(out.String(), "\n"))

	_, err = p.RunFiles(context.Background(), nil)
	assert.ErrorIs(t, err, errspkg.ErrInputRequired)

	sum, err = p.RunFiles(context.Background(), []string{first, filepath.Join(dir, "missing.xml")})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 1, sum.Sources)
}

func TestProcessSpans(t *testing.T) {
	sink, err := NewWriterSink(&bytes.Buffer{})
	require.NoError(t, err)
	p := newTestPipeline(t, nil, sink)

	outcomes := p.ProcessSpans([]Span{{Text: companySpan("1")}, {Text: malformedSpan}})
	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Accepted())
	assert.False(t, outcomes[1].Accepted())
}
