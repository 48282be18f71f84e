package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/maltedev/dispensary-scraper/internal/models"
)

type MergePolicy string

const (
	// LastSeenWins keeps the position of a name's first occurrence and the
	// values of its last one.
	LastSeenWins MergePolicy = "last"
	// FirstSeenWins keeps the first occurrence untouched.
	FirstSeenWins MergePolicy = "first"
)

func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", LastSeenWins:
		return LastSeenWins, nil
	case FirstSeenWins:
		return FirstSeenWins, nil
	default:
		return "", fmt.Errorf("unknown merge policy %q (want %q or %q)", s, LastSeenWins, FirstSeenWins)
	}
}

// Merge collapses products sharing a name into one. The input is not
// modified.
func Merge(products []*models.Product, policy MergePolicy) []*models.Product {
	index := make(map[string]int, len(products))
	merged := make([]*models.Product, 0, len(products))

	for _, p := range products {
		if p == nil {
			continue
		}

		i, seen := index[p.Name]
		if !seen {
			index[p.Name] = len(merged)
			merged = append(merged, p)
			continue
		}

		if policy != FirstSeenWins {
			merged[i] = p
		}
	}

	return merged
}

// Shuffle permutes products in place.
func Shuffle(products []*models.Product, rng *rand.Rand) {
	rng.Shuffle(len(products), func(i, j int) {
		products[i], products[j] = products[j], products[i]
	})
}

// Marshal renders the catalog as an indented JSON array. An empty catalog
// is written as [] rather than null.
func Marshal(products []*models.Product) ([]byte, error) {
	if products == nil {
		products = []*models.Product{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(products); err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return buf.Bytes(), nil
}

// Categories returns the distinct category labels in order of appearance.
func Categories(products []*models.Product) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, p := range products {
		if !seen[p.Category] {
			seen[p.Category] = true
			labels = append(labels, p.Category)
		}
	}
	return labels
}
