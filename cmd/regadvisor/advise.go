package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Strob0t/RegAdvisor/internal/config"
	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
)

func adviseCmd(g *globalFlags) *cobra.Command {
	var (
		query        string
		jurisdiction string
		frameworks   []string
		tolerance    string
		role         string
		compact      bool
	)
	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Answer one advisory query and print the synthesis result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" && len(args) > 0 {
				query = strings.Join(args, " ")
			}
			ac := &advisory.Context{
				Query:         query,
				Jurisdiction:  strings.ToUpper(jurisdiction),
				Frameworks:    frameworks,
				RiskTolerance: advisory.RiskTolerance(strings.ToLower(tolerance)),
				Role:          advisory.Role(role),
			}
			if err := ac.Validate(); err != nil {
				return err
			}

			cfg, _, err := config.LoadWithCLI(g.cliFlags(cmd))
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			ctx := cmd.Context()
			// Logs go to stderr so stdout carries only the result.
			a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()

			res, err := a.orchestrator.ProcessQuery(ctx, ac)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&query, "query", "q", "", "Query text (or pass it as arguments)")
	f.StringVarP(&jurisdiction, "jurisdiction", "j", "US", "Jurisdiction code")
	f.StringSliceVarP(&frameworks, "frameworks", "f", []string{"AML", "KYC"}, "Compliance frameworks in scope")
	f.StringVarP(&tolerance, "tolerance", "t", string(advisory.RiskToleranceMedium), "Risk tolerance (low, medium, high)")
	f.StringVar(&role, "role", string(advisory.RoleAnalyst), "Requester role")
	f.BoolVar(&compact, "compact", false, "Print JSON on one line")
	return cmd
}
