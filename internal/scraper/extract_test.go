package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/dispensary-scraper/internal/browser"
	"github.com/maltedev/dispensary-scraper/internal/models"
	"github.com/maltedev/dispensary-scraper/internal/parser"
	"github.com/maltedev/dispensary-scraper/internal/render"
)

// MockExtractor is a mock for Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(card render.Element, category string) (*models.Product, error) {
	args := m.Called(card, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func TestExtractCards_ClassifiesCards(t *testing.T) {
	doc, err := browser.ParseHTMLString(`
		<div data-testid="product-card-div">one</div>
		<div data-testid="product-card-div">two</div>
		<div data-testid="product-card-div">three</div>`)
	require.NoError(t, err)

	cards, err := doc.QuerySelectorAll(context.Background(), `[data-testid="product-card-div"]`)
	require.NoError(t, err)
	require.Len(t, cards, 3)

	extractor := new(MockExtractor)
	extractor.On("Extract", cards[0], "EDIBLES").Return(models.NewProduct("Kiva Bar", "EDIBLES"), nil)
	extractor.On("Extract", cards[1], "EDIBLES").Return(nil, parser.ErrUnusable)
	extractor.On("Extract", cards[2], "EDIBLES").Return(nil, errors.New("element detached"))

	result, err := ExtractCards(context.Background(), doc, DefaultCardSelectors(), extractor, "EDIBLES", discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Found)
	assert.Equal(t, 1, result.Unusable)
	assert.Equal(t, 1, result.Faulted)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "Kiva Bar", result.Products[0].Name)
	assert.Equal(t, result.Found-result.Unusable-result.Faulted, len(result.Products))
}

func TestExtractCards_FallsBackToNextSelector(t *testing.T) {
	doc, err := browser.ParseHTMLString(`
		<div data-testid="card-outer"><div data-testid="product-name">Gelato</div></div>
		<div data-testid="card-outer"><div data-testid="product-name">Runtz</div></div>`)
	require.NoError(t, err)

	extractor, err := parser.NewCardExtractor("https://gsngdispensary.com", parser.DefaultSelectors())
	require.NoError(t, err)

	result, err := ExtractCards(context.Background(), doc, DefaultCardSelectors(), extractor, "FLOWER", discardLogger())
	require.NoError(t, err)

	require.Len(t, result.Products, 2)
	assert.Equal(t, "Gelato", result.Products[0].Name)
	assert.Equal(t, "Runtz", result.Products[1].Name)
}

func TestExtractCards_NoCards(t *testing.T) {
	doc, err := browser.ParseHTMLString(`<p>Nothing here</p>`)
	require.NoError(t, err)

	extractor := new(MockExtractor)
	result, err := ExtractCards(context.Background(), doc, DefaultCardSelectors(), extractor, "FLOWER", discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Found)
	assert.Empty(t, result.Products)
	extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestExtractCards_InvalidSelector(t *testing.T) {
	doc, err := browser.ParseHTMLString(`<p>Nothing here</p>`)
	require.NoError(t, err)

	_, err = ExtractCards(context.Background(), doc, []string{"[["}, new(MockExtractor), "FLOWER", discardLogger())
	assert.Error(t, err)
}
