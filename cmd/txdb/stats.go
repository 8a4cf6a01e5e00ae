package main

import (
	"fmt"

	"txdb/pkg/domain"

	"github.com/spf13/cobra"
)

type statsOutput struct {
	Target     domain.TargetID       `json:"target"`
	InScope    int64                 `json:"in_scope"`
	OutOfScope int64                 `json:"out_of_scope"`
	Slowest    []*domain.Transaction `json:"slowest"`
}

func statsCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show transaction counts and the slowest transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			tid := a.registry.Resolve(domain.TargetID(targetID))
			out := statsOutput{Target: tid}
			if out.InScope, err = a.svc.CountInScope(ctx, tid); err != nil {
				return err
			}
			if out.OutOfScope, err = a.svc.Count(ctx, false, tid); err != nil {
				return err
			}
			if out.Slowest, err = a.svc.GetTopBySpeed(ctx, domain.SortDesc, top, tid); err != nil {
				return err
			}
			for _, t := range out.Slowest {
				t.RawRequest, t.ResponseHeaders, t.ResponseBody = "", "", nil
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 5, "number of slowest transactions to show")
	return cmd
}
