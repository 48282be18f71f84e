package parser

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/maltedev/dispensary-scraper/internal/models"
	"github.com/maltedev/dispensary-scraper/internal/render"
)

// ErrUnusable is returned for cards without a readable product name.
var ErrUnusable = errors.New("card has no product name")

// Selectors locate the fields inside one product card.
type Selectors struct {
	// TestIDAttribute is the attribute that carries price hints such as
	// "variant-price-45".
	TestIDAttribute string
	Link            string
	Brand           string
	Name            string
	Price           string
	Image           string
}

func DefaultSelectors() Selectors {
	return Selectors{
		TestIDAttribute: "data-testid",
		Link:            "a",
		Brand:           `[data-testid*="product-card-brand-name"]`,
		Name:            `[data-testid*="product-name"]`,
		Price:           `[data-testid*="price"], [data-testid*="discount"]`,
		Image:           "img",
	}
}

// CardExtractor turns a rendered product card into a models.Product.
type CardExtractor struct {
	baseURL   *url.URL
	selectors Selectors

	currencyPattern       *regexp.Regexp
	attributePricePattern *regexp.Regexp
	metaPattern           *regexp.Regexp
}

func NewCardExtractor(baseURL string, selectors Selectors) (*CardExtractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute: %q", baseURL)
	}

	return &CardExtractor{
		baseURL:               base,
		selectors:             selectors,
		currencyPattern:       regexp.MustCompile(`\$(\d+(?:\.\d+)?)`),
		attributePricePattern: regexp.MustCompile(`price-(\d+(?:\.\d+)?)`),
		metaPattern:           regexp.MustCompile(`(?i)(?:total\s+thc|thca?|cbd)\s*:?\s*\d+(?:\.\d+)?\s*%|\d+(?:\.\d+)?\s*mg\b`),
	}, nil
}

// Extract reads one card. It returns ErrUnusable when the card has no name
// or its name is the Unknown placeholder;
// any other error means the card could not be read. Either way the caller
// skips the card. Every other missing field falls back to its default.
func (e *CardExtractor) Extract(card render.Element, category string) (*models.Product, error) {
	name, err := e.extractText(card, e.selectors.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to read name: %w", err)
	}
	if name == "" {
		name = models.UnknownName
	}
	if name == models.UnknownName {
		return nil, ErrUnusable
	}

	brand, err := e.extractText(card, e.selectors.Brand)
	if err != nil {
		return nil, fmt.Errorf("failed to read brand: %w", err)
	}

	product := models.NewProduct(composeName(brand, name), category)

	if product.URL, err = e.extractLink(card); err != nil {
		return nil, fmt.Errorf("failed to read link: %w", err)
	}

	cardText, err := card.InnerText()
	if err != nil {
		return nil, fmt.Errorf("failed to read card text: %w", err)
	}

	if product.Price, err = e.extractPrice(card, cardText); err != nil {
		return nil, fmt.Errorf("failed to read price: %w", err)
	}

	product.Meta = e.extractMeta(cardText)

	if product.Image, err = e.extractAttribute(card, e.selectors.Image, "src"); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return product, nil
}

// composeName prefixes the brand unless the name already starts with it.
func composeName(brand, name string) string {
	if brand == "" || strings.HasPrefix(strings.ToLower(name), strings.ToLower(brand)) {
		return name
	}
	return brand + " - " + name
}

func (e *CardExtractor) extractLink(card render.Element) (string, error) {
	href, err := e.extractAttribute(card, e.selectors.Link, "href")
	if err != nil || href == "" {
		return "", err
	}

	if !strings.HasPrefix(href, "/") {
		return href, nil
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	return e.baseURL.ResolveReference(ref).String(), nil
}

func (e *CardExtractor) extractMeta(cardText string) string {
	if match := e.metaPattern.FindString(cardText); match != "" {
		return match
	}
	return models.NoMeta
}

// extractText returns the trimmed text of the first match, or "".
func (e *CardExtractor) extractText(card render.Element, selector string) (string, error) {
	el, err := card.QuerySelector(selector)
	if err != nil || el == nil {
		return "", err
	}

	text, err := el.InnerText()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e *CardExtractor) extractAttribute(card render.Element, selector, attribute string) (string, error) {
	el, err := card.QuerySelector(selector)
	if err != nil || el == nil {
		return "", err
	}
	return el.Attribute(attribute)
}
