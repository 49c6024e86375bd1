package pipeline

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/pbnjay/memory"
	"golang.org/x/sync/errgroup"

	"github.com/drblury/abrflow/internal/extract"
	"github.com/drblury/abrflow/internal/normalize"
	"github.com/drblury/abrflow/internal/record"
)

// spanCost approximates the memory held per span while a batch is in
// flight: the line itself plus its extracted fields and record.
const spanCost = 8 << 10

// Outcome is the result of processing one span. Exactly one of Record and
// Err is set.
type Outcome struct {
	Span   Span
	Record *record.Record
	Err    error
	// Unrouted lists schema-drift diagnostics found while extracting.
	Unrouted []extract.Unrouted
}

// Accepted reports whether the span produced a record.
func (o Outcome) Accepted() bool { return o.Err == nil }

// ProcessSpan extracts and normalizes one span.
func ProcessSpan(span Span) Outcome {
	out := Outcome{Span: span}
	fields, err := extract.Extract(span.Text)
	if err != nil {
		out.Err = err
		return out
	}
	out.Unrouted = fields.Unrouted
	out.Record, out.Err = normalize.Normalize(fields)
	return out
}

// WorkerCount resolves the configured worker count. Zero uses the number
// of physical cores, falling back to the logical CPU count.
func WorkerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// BatchLimit caps batchSize so one batch stays within the memory budget.
// A zero budget is a quarter of total system memory.
func BatchLimit(batchSize, budgetMB int) int {
	budget := uint64(budgetMB) << 20
	if budgetMB <= 0 {
		budget = memory.TotalMemory() / 4
	}
	if budget == 0 {
		return batchSize
	}
	limit := int(budget / spanCost)
	if limit < 1 {
		limit = 1
	}
	if batchSize <= 0 || limit < batchSize {
		return limit
	}
	return batchSize
}

// processBatch runs ProcessSpan over spans on at most workers goroutines.
// Outcomes are indexed like spans, so order never depends on scheduling.
func processBatch(spans []Span, workers int) []Outcome {
	outcomes := make([]Outcome, len(spans))
	if len(spans) == 0 {
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(workers)

	chunk := (len(spans) + workers*4 - 1) / (workers * 4)
	for start := 0; start < len(spans); start += chunk {
		end := min(start+chunk, len(spans))
		g.Go(func() error {
			for i := start; i < end; i++ {
				outcomes[i] = ProcessSpan(spans[i])
			}
			return nil
		})
	}
	// workers never fail; rejections are carried in the outcomes
	_ = g.Wait()
	return outcomes
}
