package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pcrwatch/pcrwatch/internal/config"
	"github.com/pcrwatch/pcrwatch/internal/core/pcr"
	errwrap "github.com/pcrwatch/pcrwatch/internal/errors"
	"github.com/pcrwatch/pcrwatch/internal/observability"
	"github.com/pcrwatch/pcrwatch/internal/output"
)

var fetchFormat string

var fetchCmd = &cobra.Command{
	Use:   "fetch <symbol>",
	Short: "Fetch one option chain and print its put/call ratio",
	Long: `Fetch the option chain for a single symbol right now, aggregate it, and
print the snapshot. The full session handshake, pacing, and retry pipeline
apply, so this can take a while on a cold start.

Nothing is persisted; use serve for continuous collection.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := strings.ToUpper(strings.TrimSpace(args[0]))
		if symbol == "" {
			return errwrap.NewInvalidInputError("symbol is required")
		}

		format, err := output.ParseFormat(fetchFormat)
		if err != nil {
			return errwrap.NewInvalidInputError(err.Error())
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "configuration load failed")
		}

		logger := observability.CLILogger
		fetcher, _ := buildFetcher(cfg, logger)

		logger.Debug("fetching option chain",
			zap.String("symbol", symbol),
			zap.String("upstream", cfg.Upstream.BaseURL))

		chain, err := fetcher.Fetch(cmd.Context(), symbol)
		if err != nil {
			return errwrap.WrapFetchFailure(cmd.Context(), err, "fetch failed for "+symbol)
		}

		snap := pcr.Aggregate(symbol, chain, timeNow())
		if snap == nil {
			return errwrap.NewInternalError("aggregation produced no snapshot")
		}

		rendered, err := output.NewFormatter(format).FormatSnapshot(snap)
		if err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "render failed")
		}

		fmt.Println(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchFormat, "format", "f", "table", "output format (table, json)")
}
