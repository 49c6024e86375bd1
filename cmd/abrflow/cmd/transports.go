package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/drblury/abrflow/transport"
)

func newTransportsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transports",
		Short: "List the registered sink transports and their guarantees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listTransports(cmd.OutOrStdout(), transport.DefaultRegistry)
		},
	}
}

func listTransports(w io.Writer, reg *transport.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tORDERED\tBATCHED\tHEADERS\tDURABLE\tMAX SIZE")
	fmt.Fprintf(tw, "%s\tyes\tyes\tno\tno\t-\n", "stdout")
	for _, name := range reg.Names() {
		caps := reg.GetCapabilities(name)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			name,
			yesNo(caps.SupportsOrdering),
			yesNo(caps.SupportsBatching),
			yesNo(caps.SupportsTracing),
			yesNo(caps.Durable),
			maxSize(caps.MaxMessageSize),
		)
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func maxSize(n int64) string {
	switch {
	case n == 0:
		return "-"
	case n%(1<<20) == 0:
		return fmt.Sprintf("%dMiB", n>>20)
	case n%(1<<10) == 0:
		return fmt.Sprintf("%dKiB", n>>10)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
