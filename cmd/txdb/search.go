package main

import (
	"txdb/internal/query"
	"txdb/pkg/domain"

	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	var (
		criteria   string
		includeRaw bool
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search stored transactions",
		Example: `  txdb search --criteria '{"search":true,"url":"login","limit":10}'
  txdb search --criteria '{"method":["POST","PUT"],"scope":true}' --raw`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := query.ParseJSON([]byte(criteria))
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.SearchAll(cmd.Context(), c, domain.TargetID(targetID), includeRaw)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&criteria, "criteria", "c", "", "criteria as a JSON object")
	cmd.Flags().BoolVar(&includeRaw, "raw", false, "include raw request and response")
	return cmd
}
