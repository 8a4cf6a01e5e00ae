package main

import (
	"fmt"

	"txdb/internal/har"
	"txdb/pkg/domain"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	var (
		scopeHosts []string
		batchSize  int
		record     bool
	)
	cmd := &cobra.Command{
		Use:   "import <file.har>",
		Short: "Import transactions from a HAR archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := har.Parse(args[0], har.HostScope(scopeHosts...))
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if record {
				a.recorder.Start()
			}
			if batchSize <= 0 {
				batchSize = 100
			}

			bar := progressbar.NewOptions(len(txs),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Importing transactions"),
				progressbar.OptionClearOnFinish(),
			)
			tid := domain.TargetID(targetID)
			var imported int
			for start := 0; start < len(txs); start += batchSize {
				end := min(start+batchSize, len(txs))
				ids, err := a.svc.Ingest(cmd.Context(), txs[start:end], tid)
				if err != nil {
					return err
				}
				imported += len(ids)
				_ = bar.Add(end - start)
			}
			_ = bar.Finish()

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d transactions\n", imported)
			if record {
				recorded := a.recorder.Stop()
				return printJSON(cmd.OutOrStdout(), recorded)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&scopeHosts, "scope", nil, "in-scope hosts (default: all)")
	cmd.Flags().IntVar(&batchSize, "batch", 100, "transactions per ingest batch")
	cmd.Flags().BoolVar(&record, "record", false, "print the (target, id) pairs of imported transactions")
	return cmd
}
