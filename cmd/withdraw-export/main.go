// Command withdraw-export pulls the withdrawal history of one account, page by
// page, and saves it as a formatted spreadsheet in the output directory.
//
// All settings come from the environment, an optional .env file and an
// optional config.yaml; see pkg/config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jatushlashkari/finance-v1/pkg/config"
	"github.com/jatushlashkari/finance-v1/pkg/logging"
	"github.com/jatushlashkari/finance-v1/pkg/metrics"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "withdraw-export",
		Short: "Export withdrawal history to an .xlsx file",
		Long: `Fetches the withdrawal history page by page, with randomized delays between
pages, and writes the records to withdrawal_data_formatted_<timestamp>.xlsx.`,
		Args:              cobra.NoArgs,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Version:           version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				logging.Setup(logging.DefaultConfig())
				log.Error().Err(err).Msg("Invalid configuration")
				return err
			}
			logging.Setup(cfg.Logging())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return execute(ctx, cfg)
		},
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Display the version of withdraw-export",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "withdraw-export version %s\n", version)
		},
	})

	return rootCmd
}

// execute runs one export and writes the metrics textfile if configured.
func execute(ctx context.Context, cfg *config.Config) error {
	_, err := run(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Run failed")
	}

	if cfg.MetricsTextfile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsTextfile); werr != nil {
			log.Warn().Err(werr).Str("path", cfg.MetricsTextfile).Msg("Failed to write metrics")
		}
	}

	return err
}
