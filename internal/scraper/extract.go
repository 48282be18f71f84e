package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/dispensary-scraper/internal/models"
	"github.com/maltedev/dispensary-scraper/internal/parser"
	"github.com/maltedev/dispensary-scraper/internal/render"
)

// Extraction is the outcome of reading every card of one category.
type Extraction struct {
	Products []*models.Product
	// Found is the number of cards enumerated.
	Found int
	// Unusable cards had no product name.
	Unusable int
	// Faulted cards could not be read.
	Faulted int
}

// ExtractCards enumerates cards with the first selector that matches
// anything and extracts each one. A card that cannot be read is skipped
// without affecting the others.
func ExtractCards(ctx context.Context, source CardSource, selectors []string, extractor Extractor, label string, logger *slog.Logger) (*Extraction, error) {
	var cards []render.Element
	for _, selector := range selectors {
		found, err := source.QuerySelectorAll(ctx, selector)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate cards: %w", err)
		}
		if len(found) > 0 {
			cards = found
			logger.Debug("cards matched", "selector", selector, "count", len(found))
			break
		}
	}

	logger.Info("parsing cards", "category", label, "count", len(cards))

	result := &Extraction{Found: len(cards)}
	for i, card := range cards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		product, err := extractor.Extract(card, label)
		switch {
		case errors.Is(err, parser.ErrUnusable):
			result.Unusable++
		case err != nil:
			result.Faulted++
			logger.Debug("skipping card", "category", label, "index", i, "error", err)
		default:
			result.Products = append(result.Products, product)
		}
	}

	return result, nil
}
