package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/maltedev/dispensary-scraper/internal/catalog"
	"github.com/maltedev/dispensary-scraper/internal/models"
)

// CatalogSource is where the API reads the catalog from: the output file
// or the database sink.
type CatalogSource interface {
	Products(ctx context.Context, category string) ([]*models.Product, error)
}

type Handlers struct {
	source CatalogSource
	logger *slog.Logger
}

func NewHandlers(source CatalogSource, logger *slog.Logger) *Handlers {
	return &Handlers{
		source: source,
		logger: logger.With("component", "api"),
	}
}

// ProductsResponse represents a catalog listing
type ProductsResponse struct {
	Products []*models.Product `json:"products"`
	Count    int               `json:"count"`
}

// CategorySummary represents one category of the catalog
type CategorySummary struct {
	Label    string `json:"label"`
	Products int    `json:"products"`
}

type CategoriesResponse struct {
	Categories []CategorySummary `json:"categories"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListProducts handles GET /api/v1/products?category=&q=
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	products, ok := h.load(w, r, category)
	if !ok {
		return
	}

	if query != "" {
		filtered := make([]*models.Product, 0, len(products))
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Name), query) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}

	if products == nil {
		products = []*models.Product{}
	}

	h.respondJSON(w, http.StatusOK, ProductsResponse{
		Products: products,
		Count:    len(products),
	})
}

// ListCategories handles GET /api/v1/categories
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	products, ok := h.load(w, r, "")
	if !ok {
		return
	}

	counts := make(map[string]int)
	for _, p := range products {
		counts[p.Category]++
	}

	summaries := make([]CategorySummary, 0, len(counts))
	for _, label := range catalog.Categories(products) {
		summaries = append(summaries, CategorySummary{Label: label, Products: counts[label]})
	}

	h.respondJSON(w, http.StatusOK, CategoriesResponse{Categories: summaries})
}

func (h *Handlers) load(w http.ResponseWriter, r *http.Request, category string) ([]*models.Product, bool) {
	products, err := h.source.Products(r.Context(), category)
	if errors.Is(err, fs.ErrNotExist) {
		h.respondError(w, http.StatusNotFound, "catalog has not been written yet")
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to load catalog", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load catalog")
		return nil, false
	}
	return products, true
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
