package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/maltedev/dispensary-scraper/internal/models"
)

// Schema creates the tables the catalog sink writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS scrape_run (
	id                UUID PRIMARY KEY,
	source            TEXT NOT NULL,
	started_at        TIMESTAMPTZ NOT NULL,
	finished_at       TIMESTAMPTZ NOT NULL,
	product_count     INTEGER NOT NULL,
	failed_categories INTEGER NOT NULL,
	categories        JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_product (
	name          TEXT PRIMARY KEY,
	price         TEXT NOT NULL,
	meta          TEXT NOT NULL,
	category      TEXT NOT NULL,
	image         TEXT NOT NULL DEFAULT '',
	url           TEXT NOT NULL DEFAULT '',
	last_run_id   UUID NOT NULL REFERENCES scrape_run(id),
	first_seen_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_catalog_product_category ON catalog_product(category);
`

const insertRunQuery = `
	INSERT INTO scrape_run (
		id, source, started_at, finished_at,
		product_count, failed_categories, categories
	) VALUES ($1, $2, $3, $4, $5, $6, $7)`

const upsertProductQuery = `
	INSERT INTO catalog_product (name, price, meta, category, image, url, last_run_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (name) DO UPDATE SET
		price = EXCLUDED.price,
		meta = EXCLUDED.meta,
		category = EXCLUDED.category,
		image = EXCLUDED.image,
		url = EXCLUDED.url,
		last_run_id = EXCLUDED.last_run_id,
		updated_at = CURRENT_TIMESTAMP`

// Execer is the part of pgx.Tx the repository needs (for testing)
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CatalogRepository stores merged catalogs keyed by product name.
type CatalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save records the run and upserts every product in one transaction.
func (r *CatalogRepository) Save(ctx context.Context, run *models.Run, products []*models.Product) error {
	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		return r.SaveWithTx(ctx, tx, run, products)
	})
}

func (r *CatalogRepository) SaveWithTx(ctx context.Context, tx Execer, run *models.Run, products []*models.Product) error {
	categories, err := json.Marshal(run.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal run categories: %w", err)
	}

	_, err = tx.Exec(ctx, insertRunQuery,
		run.ID, run.Source, run.StartedAt, run.FinishedAt,
		len(products), run.Failed(), categories,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, p := range products {
		_, err := tx.Exec(ctx, upsertProductQuery,
			p.Name, p.Price, p.Meta, p.Category, p.Image, p.URL, run.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert product %q: %w", p.Name, err)
		}
	}

	return nil
}

// Products returns the stored catalog, optionally limited to one category.
func (r *CatalogRepository) Products(ctx context.Context, category string) ([]*models.Product, error) {
	query := `
		SELECT name, price, meta, category, image, url
		FROM catalog_product
		WHERE $1 = '' OR lower(category) = lower($1)
		ORDER BY category, name`

	rows, err := r.db.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Product, error) {
		var p models.Product
		err := row.Scan(&p.Name, &p.Price, &p.Meta, &p.Category, &p.Image, &p.URL)
		return &p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}
	return products, nil
}
