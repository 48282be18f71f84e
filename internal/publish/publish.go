package publish

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/maltedev/dispensary-scraper/internal/catalog"
	"github.com/maltedev/dispensary-scraper/internal/events"
	"github.com/maltedev/dispensary-scraper/internal/models"
	"github.com/maltedev/dispensary-scraper/internal/storage"
)

// CatalogStore persists a merged catalog, e.g. database.CatalogRepository.
type CatalogStore interface {
	Save(ctx context.Context, run *models.Run, products []*models.Product) error
}

// EventSink announces a written catalog, e.g. events.Publisher.
type EventSink interface {
	PublishCatalog(ctx context.Context, payload *events.CatalogPublishedPayload) (string, error)
}

type Options struct {
	MergePolicy catalog.MergePolicy
	Shuffle     bool
	// Rand drives the shuffle; nil seeds one from the clock.
	Rand *rand.Rand
}

// Publisher turns the products collected by a run into the final catalog
// and hands it to every configured sink. The file is always written; the
// store and event sink are optional.
type Publisher struct {
	file   *storage.CatalogFile
	store  CatalogStore
	events EventSink
	opts   Options
	logger *slog.Logger
}

func New(file *storage.CatalogFile, opts Options, logger *slog.Logger) *Publisher {
	if opts.MergePolicy == "" {
		opts.MergePolicy = catalog.LastSeenWins
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Publisher{
		file:   file,
		opts:   opts,
		logger: logger.With("component", "publisher"),
	}
}

func (p *Publisher) WithStore(store CatalogStore) *Publisher {
	p.store = store
	return p
}

func (p *Publisher) WithEvents(sink EventSink) *Publisher {
	p.events = sink
	return p
}

// Publish merges, optionally shuffles and writes the catalog, then feeds
// the optional sinks. It returns the catalog as written.
func (p *Publisher) Publish(ctx context.Context, run *models.Run, products []*models.Product) ([]*models.Product, error) {
	merged := catalog.Merge(products, p.opts.MergePolicy)
	if p.opts.Shuffle {
		catalog.Shuffle(merged, p.opts.Rand)
	}
	run.Products = len(merged)

	p.logger.Info("catalog merged",
		"collected", len(products),
		"unique", len(merged),
		"policy", p.opts.MergePolicy,
	)

	if err := p.file.Write(merged); err != nil {
		return nil, err
	}
	p.logger.Info("catalog written", "path", p.file.Path(), "products", len(merged))

	if p.store != nil {
		if err := p.store.Save(ctx, run, merged); err != nil {
			return merged, fmt.Errorf("failed to store catalog: %w", err)
		}
		p.logger.Info("catalog stored", "run_id", run.ID)
	}

	if p.events != nil {
		payload := events.NewCatalogPublished(run, p.file.Path(), merged)
		if _, err := p.events.PublishCatalog(ctx, payload); err != nil {
			return merged, fmt.Errorf("failed to announce catalog: %w", err)
		}
	}

	return merged, nil
}
