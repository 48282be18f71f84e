package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maltedev/dispensary-scraper/internal/browser"
	"github.com/maltedev/dispensary-scraper/internal/scraper"
)

var (
	scrapeOutput   string
	scrapeHeadless bool
	scrapeShuffle  bool
)

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "", "Catalog file to write (overrides output.path).")
	scrapeCmd.Flags().BoolVar(&scrapeHeadless, "headless", true, "Run the browser without a window (overrides browser.headless).")
	scrapeCmd.Flags().BoolVar(&scrapeShuffle, "shuffle", false, "Shuffle the catalog before writing (overrides output.shuffle).")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--output <path/to/products.json>]",
	Short: "Renders every configured category in a browser and writes the merged catalog.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("output") {
			cfg.Output.Path = scrapeOutput
		}
		if flags.Changed("headless") {
			cfg.Browser.Headless = scrapeHeadless
		}
		if flags.Changed("shuffle") {
			cfg.Output.Shuffle = scrapeShuffle
		}

		ctx := cmd.Context()

		extractor, err := newExtractor(cfg)
		if err != nil {
			return err
		}

		logger.Info("starting catalog scrape",
			"categories", len(cfg.Categories),
			"headless", cfg.Browser.Headless,
			"output", cfg.Output.Path,
		)

		b, err := browser.New(browserOptions(cfg.Browser))
		if err != nil {
			return fmt.Errorf("failed to initialize browser: %w", err)
		}
		defer func() {
			if err := b.Close(); err != nil {
				logger.Warn("failed to close browser", "error", err)
			}
		}()

		page, err := b.NewPage()
		if err != nil {
			return err
		}
		defer page.Close()

		walker := scraper.NewWalker(
			extractor,
			scraper.NewStabilizer(stabilizerOptions(cfg.Scraper), logger),
			walkerOptions(cfg.Scraper),
			logger,
		)

		report, err := walker.Run(ctx, page, cfg.Categories)
		if err != nil {
			return fmt.Errorf("scrape interrupted after %d categories: %w", len(report.Categories), err)
		}

		return finish(ctx, cfg, logger, report, "scrape", cmd.OutOrStdout())
	},
}
