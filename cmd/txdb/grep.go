package main

import (
	"txdb/pkg/domain"

	"github.com/spf13/cobra"
)

func grepCmd() *cobra.Command {
	var stats bool
	cmd := &cobra.Command{
		Use:   "grep [rule...]",
		Short: "Show indexed matches for rules (all rules when none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			names := args
			if len(names) == 0 {
				names = a.svc.Rules()
			}
			res, err := a.svc.SearchByRuleNames(cmd.Context(), names, stats, domain.TargetID(targetID))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "include the share of in-scope transactions matched")
	return cmd
}
