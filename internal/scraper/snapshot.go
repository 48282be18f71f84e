package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/maltedev/dispensary-scraper/internal/browser"
	"github.com/maltedev/dispensary-scraper/internal/models"
)

// Snapshot is a rendered category page saved to disk.
type Snapshot struct {
	Category models.Category
	Path     string
}

// ReadSnapshots extracts products from saved pages the same way a live run
// does after the page has settled. A snapshot that cannot be read or holds
// no cards fails on its own; the others still count.
func ReadSnapshots(ctx context.Context, snapshots []Snapshot, selectors []string, extractor Extractor, logger *slog.Logger) (*Report, error) {
	if len(selectors) == 0 {
		selectors = DefaultCardSelectors()
	}
	logger = logger.With("component", "snapshot")

	report := &Report{StartedAt: time.Now()}
	defer func() { report.FinishedAt = time.Now() }()

	for _, snapshot := range snapshots {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, products := readSnapshot(ctx, snapshot, selectors, extractor, logger)
		report.Categories = append(report.Categories, result)
		report.Products = append(report.Products, products...)

		if result.Status == StatusFailed {
			logger.Error("snapshot failed", "category", snapshot.Category.Label, "path", snapshot.Path, "error", result.Err)
		} else {
			logger.Info("snapshot done", "category", snapshot.Category.Label, "added", result.Extracted)
		}
	}

	return report, nil
}

func readSnapshot(ctx context.Context, snapshot Snapshot, selectors []string, extractor Extractor, logger *slog.Logger) (CategoryResult, []*models.Product) {
	start := time.Now()
	result := CategoryResult{Category: snapshot.Category, Status: StatusFailed}

	fail := func(err error) (CategoryResult, []*models.Product) {
		result.Err = err
		result.Duration = time.Since(start)
		return result, nil
	}

	f, err := os.Open(snapshot.Path)
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	doc, err := browser.ParseHTML(f)
	if err != nil {
		return fail(err)
	}

	extraction, err := ExtractCards(ctx, doc, selectors, extractor, snapshot.Category.Label, logger)
	if err != nil {
		return fail(err)
	}
	if extraction.Found == 0 {
		return fail(fmt.Errorf("%w in %s", ErrNotReady, snapshot.Path))
	}

	result.Status = StatusSucceeded
	result.Found = extraction.Found
	result.Extracted = len(extraction.Products)
	result.Unusable = extraction.Unusable
	result.Faulted = extraction.Faulted
	result.Duration = time.Since(start)
	return result, extraction.Products
}
