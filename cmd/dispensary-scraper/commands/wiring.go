package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/dispensary-scraper/internal/browser"
	"github.com/maltedev/dispensary-scraper/internal/catalog"
	"github.com/maltedev/dispensary-scraper/internal/config"
	"github.com/maltedev/dispensary-scraper/internal/database"
	"github.com/maltedev/dispensary-scraper/internal/events"
	"github.com/maltedev/dispensary-scraper/internal/models"
	"github.com/maltedev/dispensary-scraper/internal/parser"
	"github.com/maltedev/dispensary-scraper/internal/publish"
	"github.com/maltedev/dispensary-scraper/internal/ratelimit"
	"github.com/maltedev/dispensary-scraper/internal/scraper"
	"github.com/maltedev/dispensary-scraper/internal/storage"
)

func browserOptions(c config.BrowserConfig) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = c.Headless
	if c.Timeout > 0 {
		opts.Timeout = c.Timeout
	}
	if c.UserAgent != "" {
		opts.UserAgent = c.UserAgent
	}
	if c.ViewportWidth > 0 && c.ViewportHeight > 0 {
		opts.ViewportWidth, opts.ViewportHeight = c.ViewportWidth, c.ViewportHeight
	}
	if c.Locale != "" {
		opts.Locale = c.Locale
	}
	if c.TimezoneID != "" {
		opts.TimezoneID = c.TimezoneID
	}
	opts.ProxyServer = c.ProxyServer
	return opts
}

func stabilizerOptions(c config.ScraperConfig) scraper.StabilizerOptions {
	opts := scraper.DefaultStabilizerOptions()
	if c.AgeGateSelector != "" {
		opts.AgeGateSelector = c.AgeGateSelector
	}
	opts.AgeGateTimeout = c.AgeGateTimeout
	opts.AgeGateSettle = c.AgeGateSettle
	opts.ScrollInterval = ratelimit.Interval{Min: c.ScrollIntervalMin, Max: c.ScrollIntervalMax}
	opts.MaxScrolls = c.MaxScrolls
	opts.MaxScrollDuration = c.MaxScrollDuration
	return opts
}

func walkerOptions(c config.ScraperConfig) scraper.WalkerOptions {
	opts := scraper.DefaultWalkerOptions()
	if c.NavigationTimeout > 0 {
		opts.NavigationTimeout = c.NavigationTimeout
	}
	if c.ReadyTimeout > 0 {
		opts.ReadyTimeout = c.ReadyTimeout
	}
	if len(c.CardSelectors) > 0 {
		opts.CardSelectors = c.CardSelectors
	}
	opts.CategoryDelay = ratelimit.Interval{Min: c.CategoryDelayMin, Max: c.CategoryDelayMax}
	return opts
}

func newExtractor(cfg *config.Config) (*parser.CardExtractor, error) {
	return parser.NewCardExtractor(cfg.Site.BaseURL, parser.DefaultSelectors())
}

// newPublisher connects the optional sinks. The returned cleanup releases
// whatever was opened and is safe to call when err is non-nil.
func newPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*publish.Publisher, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	policy, err := catalog.ParseMergePolicy(cfg.Output.MergePolicy)
	if err != nil {
		return nil, cleanup, err
	}

	pub := publish.New(storage.NewCatalogFile(cfg.Output.Path), publish.Options{
		MergePolicy: policy,
		Shuffle:     cfg.Output.Shuffle,
	}, logger)

	if cfg.Database.Enabled {
		db, err := database.New(ctx, database.Config{
			URL:      cfg.DatabaseURL(),
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, db.Close)

		repo := database.NewCatalogRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, cleanup, err
		}
		pub.WithStore(repo)
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close redis client", "error", err)
			}
		})

		if err := client.Ping(ctx).Err(); err != nil {
			return nil, cleanup, fmt.Errorf("failed to connect to redis: %w", err)
		}
		pub.WithEvents(events.NewPublisher(client, cfg.Redis.Stream, logger))
	}

	return pub, cleanup, nil
}

// finish publishes what a run collected and prints the summary table.
func finish(ctx context.Context, cfg *config.Config, logger *slog.Logger, report *scraper.Report, source string, out io.Writer) error {
	pub, cleanup, err := newPublisher(ctx, cfg, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	run := report.Summary(source)
	_, err = pub.Publish(ctx, run, report.Products)
	publish.WriteSummary(out, run)
	if err != nil {
		return err
	}

	logger.Info("run complete",
		"run_id", run.ID,
		"products", run.Products,
		"failed_categories", run.Failed(),
		"duration", run.FinishedAt.Sub(run.StartedAt),
	)
	return nil
}

// snapshotsFor pairs categories with saved pages. Explicit LABEL=PATH
// arguments win; otherwise every configured category is looked up in dir as
// <label>.html, lower-cased.
func snapshotsFor(args []string, categories []models.Category, dir string) ([]scraper.Snapshot, error) {
	if len(args) == 0 {
		snapshots := make([]scraper.Snapshot, 0, len(categories))
		for _, c := range categories {
			snapshots = append(snapshots, scraper.Snapshot{
				Category: c,
				Path:     filepath.Join(dir, strings.ToLower(c.Label)+".html"),
			})
		}
		return snapshots, nil
	}

	snapshots := make([]scraper.Snapshot, 0, len(args))
	for _, arg := range args {
		label, path, ok := strings.Cut(arg, "=")
		label = strings.TrimSpace(label)
		if !ok || label == "" || path == "" {
			return nil, fmt.Errorf("expected LABEL=PATH, got %q", arg)
		}

		category := models.Category{Label: label}
		for _, c := range categories {
			if strings.EqualFold(c.Label, label) {
				category = c
				break
			}
		}
		snapshots = append(snapshots, scraper.Snapshot{Category: category, Path: path})
	}
	return snapshots, nil
}

var errNoCategories = errors.New("no categories to process")
