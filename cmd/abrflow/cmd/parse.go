package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/drblury/abrflow/internal/extract"
	"github.com/drblury/abrflow/internal/normalize"
	"github.com/drblury/abrflow/internal/runtime/jsoncodec"
)

func newParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [span]",
		Short: "Parse one record span and print it as JSON",
		Long: `parse extracts and normalizes a single <ABR> record span, read from
the argument or, without one, from standard input. Values at paths
outside the record layout are reported on stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			span, err := readSpan(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return parseSpan(span, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func readSpan(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read span: %w", err)
	}
	span := strings.TrimSpace(string(data))
	if span == "" {
		return "", fmt.Errorf("no span given")
	}
	return span, nil
}

func parseSpan(span string, stdout, stderr io.Writer) error {
	fields, err := extract.Extract(span)
	if err != nil {
		return err
	}

	warn := color.New(color.FgYellow)
	for _, u := range fields.Unrouted {
		warn.Fprintf(stderr, "unmatched: %s\n", u)
	}

	rec, err := normalize.Normalize(fields)
	if err != nil {
		return err
	}

	out, err := jsoncodec.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = fmt.Fprintf(stdout, "%s\n", out)
	return err
}
