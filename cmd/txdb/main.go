package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"txdb/internal/config"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	targetID string
	version  = "dev"

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:               "txdb",
		Short:             "HTTP transaction store with grep content index",
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./txdb.yaml or $HOME/.config/txdb/txdb.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().StringVarP(&targetID, "target", "t", "", "assessment target (default from config)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(grepCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	cfg = c
	return nil
}
