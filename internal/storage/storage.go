package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/maltedev/dispensary-scraper/internal/catalog"
	"github.com/maltedev/dispensary-scraper/internal/models"
)

// CatalogFile is the JSON document a run produces.
type CatalogFile struct {
	mu       sync.RWMutex
	filename string
}

func NewCatalogFile(filename string) *CatalogFile {
	return &CatalogFile{filename: filename}
}

func (cf *CatalogFile) Path() string {
	return cf.filename
}

// Write replaces the file with the given catalog. Readers never observe a
// partially written file.
func (cf *CatalogFile) Write(products []*models.Product) error {
	data, err := catalog.Marshal(products)
	if err != nil {
		return err
	}

	cf.mu.Lock()
	defer cf.mu.Unlock()

	if dir := filepath.Dir(cf.filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Write to temp file first for atomicity
	tmpFile := cf.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}

	if err := os.Rename(tmpFile, cf.filename); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to replace catalog: %w", err)
	}
	return nil
}

func (cf *CatalogFile) Load() ([]*models.Product, error) {
	cf.mu.RLock()
	defer cf.mu.RUnlock()

	data, err := os.ReadFile(cf.filename)
	if err != nil {
		return nil, err
	}

	var products []*models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", cf.filename, err)
	}
	return products, nil
}

// Products loads the catalog and keeps the entries of one category, or all
// of them when category is empty.
func (cf *CatalogFile) Products(ctx context.Context, category string) ([]*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	products, err := cf.Load()
	if err != nil {
		return nil, err
	}
	if category == "" {
		return products, nil
	}

	filtered := make([]*models.Product, 0, len(products))
	for _, p := range products {
		if strings.EqualFold(p.Category, category) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}
