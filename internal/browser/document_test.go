package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/dispensary-scraper/internal/render"
)

const snapshot = `<html><body>
<div data-testid="product-card-div">
  <a href="/shop/products/kiva-bar"><img src="https://cdn.example.com/kiva.jpg"></a>
  <span data-testid="product-card-brand-name">Kiva</span>
  <div data-testid="product-name">Chocolate Bar</div>
  <div><span>$</span><span>18</span></div>
  <script>var ignored = "$99";</script>
</div>
<div data-testid="product-card-div">
  <div data-testid="product-name">Second</div>
</div>
</body></html>`

func TestDocumentQuerySelectorAll(t *testing.T) {
	doc, err := ParseHTMLString(snapshot)
	require.NoError(t, err)

	cards, err := doc.QuerySelectorAll(context.Background(), `[data-testid="product-card-div"]`)
	require.NoError(t, err)
	assert.Len(t, cards, 2)

	missing, err := doc.QuerySelectorAll(context.Background(), `[data-testid="card-outer"]`)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestNodeQueries(t *testing.T) {
	doc, err := ParseHTMLString(snapshot)
	require.NoError(t, err)

	cards, err := doc.QuerySelectorAll(context.Background(), `[data-testid="product-card-div"]`)
	require.NoError(t, err)
	card := cards[0]

	link, err := card.QuerySelector("a")
	require.NoError(t, err)
	require.NotNil(t, link)
	href, err := link.Attribute("href")
	require.NoError(t, err)
	assert.Equal(t, "/shop/products/kiva-bar", href)

	name, err := card.QuerySelector(`[data-testid*="product-name"]`)
	require.NoError(t, err)
	text, err := name.InnerText()
	require.NoError(t, err)
	assert.Equal(t, "Chocolate Bar", text)

	none, err := card.QuerySelector(`[data-testid*="discount"]`)
	require.NoError(t, err)
	assert.Nil(t, none)

	missingAttr, err := card.Attribute("data-missing")
	require.NoError(t, err)
	assert.Empty(t, missingAttr)

	assert.ErrorIs(t, card.Click(), render.ErrNotInteractive)
}

func TestNodeInnerText(t *testing.T) {
	doc, err := ParseHTMLString(snapshot)
	require.NoError(t, err)

	cards, err := doc.QuerySelectorAll(context.Background(), `[data-testid="product-card-div"]`)
	require.NoError(t, err)

	text, err := cards[0].InnerText()
	require.NoError(t, err)
	assert.Equal(t, "Kiva\nChocolate Bar\n$18", text)
}

func TestNodeInvalidSelector(t *testing.T) {
	doc, err := ParseHTMLString(snapshot)
	require.NoError(t, err)

	_, err = doc.Root().QuerySelectorAll("[[")
	assert.Error(t, err)
}
