package scraper

import (
	"context"
	"errors"

	"github.com/maltedev/dispensary-scraper/internal/models"
	"github.com/maltedev/dispensary-scraper/internal/render"
)

var (
	ErrNotReady     = errors.New("no product cards appeared")
	ErrUnexpectedJS = errors.New("unexpected script result")
)

// Extractor turns one rendered card into a product.
type Extractor interface {
	Extract(card render.Element, category string) (*models.Product, error)
}

// CardSource is anything cards can be enumerated from: a live page or a
// parsed snapshot.
type CardSource interface {
	QuerySelectorAll(ctx context.Context, selector string) ([]render.Element, error)
}

// DefaultCardSelectors identify a product card, most specific first.
func DefaultCardSelectors() []string {
	return []string{
		`[data-testid="product-card-div"]`,
		`[data-testid="card-outer"]`,
	}
}
