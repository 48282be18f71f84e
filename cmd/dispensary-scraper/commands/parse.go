package commands

import (
	"github.com/spf13/cobra"

	"github.com/maltedev/dispensary-scraper/internal/scraper"
)

var (
	parseDir    string
	parseOutput string
)

func init() {
	parseCmd.Flags().StringVar(&parseDir, "dir", "snapshots", "Directory holding <label>.html snapshots when no LABEL=PATH arguments are given.")
	parseCmd.Flags().StringVarP(&parseOutput, "output", "o", "", "Catalog file to write (overrides output.path).")
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse [LABEL=PATH ...]",
	Short: "Builds the catalog from saved, fully rendered category pages.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("output") {
			cfg.Output.Path = parseOutput
		}

		snapshots, err := snapshotsFor(args, cfg.Categories, parseDir)
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			return errNoCategories
		}

		extractor, err := newExtractor(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		report, err := scraper.ReadSnapshots(ctx, snapshots, cfg.Scraper.CardSelectors, extractor, logger)
		if err != nil {
			return err
		}

		return finish(ctx, cfg, logger, report, "parse", cmd.OutOrStdout())
	},
}
