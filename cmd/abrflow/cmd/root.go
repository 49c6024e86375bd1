// Package cmd holds the abrflow command line.
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/drblury/abrflow/internal/runtime/config"
	"github.com/drblury/abrflow/internal/runtime/logging"

	// Registers every built-in sink transport.
	_ "github.com/drblury/abrflow/transport/transports"
)

type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	noColor    bool
}

// NewRootCommand builds the abrflow command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "abrflow",
		Short: "Extract and normalize ABR bulk extract records",
		Long: `abrflow reads ABR bulk extract containers, one record per line,
extracts and validates every record, and writes the accepted records
to stdout or a message transport.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (.toml, .yaml or .yml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newRunCommand(opts),
		newParseCommand(),
		newTransportsCommand(),
	)
	return root
}

// Execute runs the command line against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig reads the config file when one is given, else starts from
// the defaults. Log flags override the file.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.configFile != "" {
		loaded, err := config.Load(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (logging.ServiceLogger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "", "text":
		return logging.NewTextLogger(w, level), nil
	case "json":
		return logging.NewJSONLogger(w, level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
}
