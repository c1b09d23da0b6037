package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vdl2_parser/internal/registry"
)

var parsersCmd = &cobra.Command{
	Use:   "parsers",
	Short: "List the registered next-layer parsers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listParsers(cmd.OutOrStdout(), registry.Default())
	},
}

func listParsers(w io.Writer, r *registry.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSLOTS\tPRIORITY")
	for _, p := range r.AllParsers() {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", p.Name(), strings.Join(p.Slots(), ","), p.Priority())
	}
	return tw.Flush()
}
