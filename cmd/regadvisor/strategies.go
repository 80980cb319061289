package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Strob0t/RegAdvisor/internal/domain/strategy"
)

func strategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the builtin orchestration strategies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMODE\tMETHOD\tTHRESHOLD\tAGENTS")
			for _, s := range strategy.Builtin() {
				mode := "sequential"
				if s.Parallel {
					mode = "parallel"
				}
				agents := make([]string, len(s.Agents))
				for i, a := range s.Agents {
					agents[i] = string(a)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\n", s.Name, mode, s.Method, s.MinConfidence, strings.Join(agents, ","))
			}
			return tw.Flush()
		},
	}
}
