package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/drblury/abrflow/internal/pipeline"
	"github.com/drblury/abrflow/internal/runtime/config"
	errspkg "github.com/drblury/abrflow/internal/runtime/errors"
	"github.com/drblury/abrflow/internal/runtime/logging"
)

type runOptions struct {
	sink            string
	encoding        string
	recordsTopic    string
	rejectionsTopic string
	charset         string
	output          string
	headerLines     int
	batchSize       int
	workers         int
	memoryBudgetMB  int
	statusPort      int
	metrics         bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [input...]",
		Short: "Process container files and emit accepted records",
		Long: `run processes each input container in order. Inputs may be glob
patterns; matches of one pattern are processed in lexical order.
Without arguments the inputs listed in the config file are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			opts.apply(cmd.Flags(), cfg)
			if len(args) > 0 {
				cfg.Inputs = args
			}
			return runPipeline(cmd.Context(), cfg, opts.output, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.sink, "sink", "s", "", "sink transport (stdout, io, channel, kafka, rabbitmq, nats, jetstream, http, aws, sqs, sqlite, postgres, redis)")
	f.StringVarP(&opts.encoding, "encoding", "e", "", "published record encoding: json, protobuf or cloudevents")
	f.StringVar(&opts.recordsTopic, "records-topic", "", "topic accepted records are published to")
	f.StringVar(&opts.rejectionsTopic, "rejections-topic", "", "topic rejection descriptions are published to")
	f.StringVar(&opts.charset, "charset", "", "input character set, for example windows-1252")
	f.StringVarP(&opts.output, "output", "o", "", "file the stdout sink writes to instead of standard output")
	f.IntVar(&opts.headerLines, "header-lines", config.DefaultHeaderLines, "container header lines to skip")
	f.IntVarP(&opts.batchSize, "batch-size", "b", 0, "records per batch")
	f.IntVarP(&opts.workers, "workers", "w", 0, "extraction workers, 0 for one per physical core")
	f.IntVar(&opts.memoryBudgetMB, "memory-budget", 0, "batch memory budget in MiB, 0 for a quarter of system memory")
	f.IntVar(&opts.statusPort, "status-port", 0, "serve /healthz, /stats and /metrics on this port")
	f.BoolVar(&opts.metrics, "metrics", false, "collect prometheus metrics")
	return cmd
}

// apply copies every flag the user set onto cfg.
func (o *runOptions) apply(flags *pflag.FlagSet, cfg *config.Config) {
	set := func(name string) bool { return flags.Changed(name) }

	if set("sink") {
		cfg.Sink = o.sink
	}
	if set("encoding") {
		cfg.Encoding = o.encoding
	}
	if set("records-topic") {
		cfg.RecordsTopic = o.recordsTopic
	}
	if set("rejections-topic") {
		cfg.RejectionsTopic = o.rejectionsTopic
	}
	if set("charset") {
		cfg.Charset = o.charset
	}
	if set("header-lines") {
		cfg.HeaderLines = o.headerLines
	}
	if set("batch-size") {
		cfg.BatchSize = o.batchSize
	}
	if set("workers") {
		cfg.Workers = o.workers
	}
	if set("memory-budget") {
		cfg.MemoryBudgetMB = o.memoryBudgetMB
	}
	if set("status-port") {
		cfg.StatusPort = o.statusPort
	}
	if set("metrics") {
		cfg.MetricsEnabled = o.metrics
	}
}

// expandInputs resolves glob patterns. A pattern matching nothing is kept
// so that opening it reports the missing file.
func expandInputs(patterns []string) ([]string, error) {
	var inputs []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("input pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			inputs = append(inputs, pattern)
			continue
		}
		sort.Strings(matches)
		inputs = append(inputs, matches...)
	}
	return inputs, nil
}

func runPipeline(ctx context.Context, cfg *config.Config, output string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return errspkg.NewConfigValidationError(err)
	}
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	inputs, err := expandInputs(cfg.Inputs)
	if err != nil {
		return err
	}
	cfg.Inputs = inputs

	out := stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	var opts []pipeline.Option
	if cfg.MetricsEnabled || cfg.StatusPort > 0 {
		reg := prometheus.NewRegistry()
		metrics := pipeline.NewMetrics(reg)
		if err := metrics.Register(); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, pipeline.WithMetrics(metrics))

		if cfg.StatusPort > 0 {
			status := pipeline.NewStatusServer(cfg.StatusPort, pipeline.NewStatusHandler(metrics, reg, logger), logger)
			status.Start(ctx)
			defer status.Shutdown()
		}
	}
	opts = append(opts, pipeline.WithHooks(pipeline.LoggingHooks(logger)))

	logger.Debug("Configuration loaded", logging.LogFields{"config": cfg.String()})

	sink, err := pipeline.NewSink(ctx, cfg, out, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("Failed to close sink", err, logging.LogFields{"sink": cfg.Sink})
		}
	}()

	p, err := pipeline.New(cfg, sink, logger, opts...)
	if err != nil {
		return err
	}

	sum, runErr := p.RunFiles(ctx, cfg.Inputs)
	printSummary(stderr, sum, runErr)
	return runErr
}

func printSummary(w io.Writer, sum pipeline.Summary, err error) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	status := green.Sprint("done")
	if err != nil {
		status = red.Sprint("failed")
	}

	bold.Fprintf(w, "abrflow run %s %s\n", sum.RunID, status)
	fmt.Fprintf(w, "  sources    %d\n", sum.Sources)
	fmt.Fprintf(w, "  batches    %d\n", sum.Batches)
	fmt.Fprintf(w, "  records    %d\n", sum.Spans)
	fmt.Fprintf(w, "  accepted   %s\n", green.Sprint(sum.Accepted))
	rejected := fmt.Sprint(sum.Rejected)
	if sum.Rejected > 0 {
		rejected = red.Sprint(sum.Rejected)
	}
	fmt.Fprintf(w, "  rejected   %s\n", rejected)
	unmatched := fmt.Sprint(sum.Unmatched)
	if sum.Unmatched > 0 {
		unmatched = yellow.Sprint(sum.Unmatched)
	}
	fmt.Fprintf(w, "  unmatched  %s\n", unmatched)
	fmt.Fprintf(w, "  took       %s\n", sum.Duration.Round(time.Millisecond))
	if err != nil {
		red.Fprintf(w, "  error      %v\n", err)
	}
}
