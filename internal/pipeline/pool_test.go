package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/abrflow/internal/runtime/errors"
)

func TestWorkerCount(t *testing.T) {
	assert.Equal(t, 3, WorkerCount(3))
	assert.Positive(t, WorkerCount(0))
}

func TestBatchLimit(t *testing.T) {
	// 1 MiB of budget holds 128 spans
	assert.Equal(t, 128, BatchLimit(65535, 1))
	assert.Equal(t, 100, BatchLimit(100, 1))
	assert.Equal(t, 128, BatchLimit(0, 1))

	derived := BatchLimit(10, 0)
	assert.GreaterOrEqual(t, derived, 1)
	assert.LessOrEqual(t, derived, 10)
}

func TestProcessSpan(t *testing.T) {
	ok := ProcessSpan(Span{Source: "f", Line: 5, Text: companySpan("51824753556")})
	require.True(t, ok.Accepted())
	assert.Equal(t, "51824753556", ok.Record.ABN)

	missing := ProcessSpan(Span{Text: missingABNSpan})
	assert.False(t, missing.Accepted())
	assert.Nil(t, missing.Record)
	assert.Equal(t, errspkg.KindMissingField, errspkg.KindOf(missing.Err))

	broken := ProcessSpan(Span{Text: malformedSpan})
	assert.Equal(t, errspkg.KindStructural, errspkg.KindOf(broken.Err))

	drift := ProcessSpan(Span{Text: `<ABR><Surprise>x</Surprise></ABR>`})
	assert.False(t, drift.Accepted())
	assert.Len(t, drift.Unrouted, 1)
}

func TestProcessSpanKeepsUnroutedOnRecords(t *testing.T) {
	span := companySpan("1")
	span = span[:len(span)-len("</ABR>")] + `<Surprise>x</Surprise></ABR>`

	out := ProcessSpan(Span{Text: span})
	require.True(t, out.Accepted(), "%v", out.Err)
	require.Len(t, out.Unrouted, 1)
	assert.Equal(t, "unhandled text: ABR/Surprise: x", out.Unrouted[0].String())
}

func TestProcessBatchPreservesOrder(t *testing.T) {
	spans := make([]Span, 1000)
	for i := range spans {
		text := companySpan(fmt.Sprint(i))
		if i%7 == 0 {
			text = missingABNSpan
		}
		spans[i] = Span{Line: i, Text: text}
	}

	for _, workers := range []int{1, 3, 16} {
		outcomes := processBatch(spans, workers)
		require.Len(t, outcomes, len(spans))
		for i, out := range outcomes {
			assert.Equal(t, i, out.Span.Line)
			if i%7 == 0 {
				assert.False(t, out.Accepted())
			} else {
				require.True(t, out.Accepted())
				assert.Equal(t, fmt.Sprint(i), out.Record.ABN)
			}
		}
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	assert.Empty(t, processBatch(nil, 4))
}
