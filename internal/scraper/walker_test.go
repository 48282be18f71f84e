package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/dispensary-scraper/internal/models"
	"github.com/maltedev/dispensary-scraper/internal/parser"
	"github.com/maltedev/dispensary-scraper/internal/render"
)

const (
	flowerURL  = "https://gsngdispensary.com/shop/categories/flower"
	prerollURL = "https://gsngdispensary.com/shop/categories/pre-rolls"
	vapeURL    = "https://gsngdispensary.com/shop/categories/vaporizers"
)

const flowerPage = `<html><body>
<div class="age-gate"><button class="age-gate__submit--yes" data-submit="yes">Yes</button></div>
<div data-testid="product-card-div">
	<a href="/shop/products/blue-dream"><img src="https://cdn.example.com/blue-dream.png"></a>
	<span data-testid="product-card-brand-name">Stiiizy</span>
	<div data-testid="product-name">Blue Dream 3.5g</div>
	<div>THC: 24.3%</div>
	<span data-testid="product-price">$45</span>
</div>
<div data-testid="product-card-div">
	<div data-testid="product-name">Gelato 1g</div>
	<span data-testid="variant-price-20">$20.00</span>
</div>
</body></html>`

const prerollPage = `<html><body><div class="empty">Loading...</div></body></html>`

const vapePage = `<html><body>
<div data-testid="card-outer">
	<div data-testid="product-name">Jack Herer Cart</div>
	<span data-testid="product-price">$30</span>
</div>
<div data-testid="card-outer">
	<div data-testid="product-name">Sour Diesel Pod</div>
	<span data-testid="product-price">$35.5</span>
</div>
<div data-testid="card-outer">
	<span data-testid="product-card-brand-name">Raw Garden</span>
	<div data-testid="product-name">Raw Garden Lemon Haze</div>
	<div>CBD 1.2%</div>
</div>
<div data-testid="card-outer">
	<span data-testid="product-price">$10</span>
</div>
</body></html>`

func testCategories() []models.Category {
	return []models.Category{
		{Label: "FLOWER", URL: flowerURL},
		{Label: "PRE-ROLLS", URL: prerollURL},
		{Label: "VAPORIZERS", URL: vapeURL},
	}
}

func newTestWalker(t *testing.T) *Walker {
	t.Helper()
	extractor, err := parser.NewCardExtractor("https://gsngdispensary.com", parser.DefaultSelectors())
	require.NoError(t, err)
	stabilizer := NewStabilizer(DefaultStabilizerOptions(), discardLogger())
	return NewWalker(extractor, stabilizer, DefaultWalkerOptions(), discardLogger())
}

func TestWalkerRun_SkipsFailedCategory(t *testing.T) {
	site := newFakeSite(map[string]string{
		flowerURL:  flowerPage,
		prerollURL: prerollPage,
		vapeURL:    vapePage,
	})

	report, err := newTestWalker(t).Run(context.Background(), site, testCategories())
	require.NoError(t, err)

	assert.Len(t, report.Products, 5)
	assert.Equal(t, []string{flowerURL, prerollURL, vapeURL}, site.visited)

	labels := map[string]int{}
	for _, p := range report.Products {
		labels[p.Category]++
		assert.Empty(t, p.Validate())
	}
	assert.Equal(t, map[string]int{"FLOWER": 2, "VAPORIZERS": 3}, labels)

	require.Len(t, report.Categories, 3)
	statuses := make([]Status, 0, 3)
	for _, c := range report.Categories {
		statuses = append(statuses, c.Status)
	}
	assert.Equal(t, []Status{StatusSucceeded, StatusFailed, StatusSucceeded}, statuses)
	assert.Equal(t, 1, report.Failed())

	failed := report.Categories[1]
	assert.True(t, errors.Is(failed.Err, ErrNotReady))
	assert.True(t, errors.Is(failed.Err, render.ErrTimeout))

	vapes := report.Categories[2]
	assert.Equal(t, 4, vapes.Found)
	assert.Equal(t, 3, vapes.Extracted)
	assert.Equal(t, 1, vapes.Unusable)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestWalkerRun_Records(t *testing.T) {
	site := newFakeSite(map[string]string{flowerURL: flowerPage})

	report, err := newTestWalker(t).Run(context.Background(), site, testCategories()[:1])
	require.NoError(t, err)
	require.Len(t, report.Products, 2)

	assert.Equal(t, &models.Product{
		Name:     "Stiiizy - Blue Dream 3.5g",
		Price:    "$45.00",
		Meta:     "THC: 24.3%",
		Category: "FLOWER",
		Image:    "https://cdn.example.com/blue-dream.png",
		URL:      "https://gsngdispensary.com/shop/products/blue-dream",
	}, report.Products[0])

	assert.Equal(t, &models.Product{
		Name:     "Gelato 1g",
		Price:    "$20.00",
		Meta:     models.NoMeta,
		Category: "FLOWER",
	}, report.Products[1])

	// The snapshot button cannot be clicked, so the gate stays up.
	assert.False(t, report.Categories[0].AgeGate)
	assert.Equal(t, 1, report.Categories[0].Scrolls)
}

func TestWalkerRun_NavigationFailure(t *testing.T) {
	site := newFakeSite(map[string]string{vapeURL: vapePage})

	report, err := newTestWalker(t).Run(context.Background(), site, testCategories())
	require.NoError(t, err)

	assert.Len(t, report.Products, 3)
	assert.Equal(t, 2, report.Failed())
	assert.Error(t, report.Categories[0].Err)
	assert.NotErrorIs(t, report.Categories[0].Err, ErrNotReady)
}

func TestWalkerRun_ConfirmsAgeGate(t *testing.T) {
	ctx := context.Background()
	opts := DefaultStabilizerOptions()
	walkerOpts := DefaultWalkerOptions()

	button := new(MockButton)
	button.On("Click").Return(nil)

	page := new(MockPage)
	page.On("Goto", mock.Anything, flowerURL, walkerOpts.NavigationTimeout).Return(nil)
	page.On("WaitForVisible", mock.Anything, opts.AgeGateSelector, opts.AgeGateTimeout).Return(button, nil)
	page.On("Pause", mock.Anything, mock.Anything).Return(nil)
	page.On("WaitForFunction", mock.Anything, readinessScript(walkerOpts.CardSelectors), walkerOpts.ReadyTimeout).Return(nil)
	page.On("Evaluate", mock.Anything, scrollHeightScript).Return(800, nil)
	page.On("Evaluate", mock.Anything, scrollToBottomScript).Return(nil, nil)
	page.On("QuerySelectorAll", mock.Anything, mock.Anything).Return([]render.Element{}, nil)

	report, err := newTestWalker(t).Run(ctx, page, testCategories()[:1])
	require.NoError(t, err)

	require.Len(t, report.Categories, 1)
	result := report.Categories[0]
	assert.Equal(t, StatusSucceeded, result.Status)
	assert.True(t, result.AgeGate)
	assert.Equal(t, 0, result.Found)
	assert.Empty(t, report.Products)
	button.AssertExpectations(t)
	page.AssertExpectations(t)
}

func TestWalkerRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	site := newFakeSite(map[string]string{
		flowerURL:  flowerPage,
		prerollURL: prerollPage,
		vapeURL:    vapePage,
	})

	report, err := newTestWalker(t).Run(ctx, site, testCategories())

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Len(t, report.Categories, 1)
	assert.Empty(t, report.Products)
}

func TestReadinessScript(t *testing.T) {
	script := readinessScript([]string{`[data-testid="product-card-div"]`, ".card"})

	assert.Equal(t,
		`() => Boolean(document.querySelector("[data-testid=\"product-card-div\"]") || document.querySelector(".card"))`,
		script)
}

func TestReportFailedMatchesSummary(t *testing.T) {
	report := &Report{Categories: []CategoryResult{
		{Category: models.Category{Label: "FLOWER"}, Status: StatusSucceeded, Found: 2, Extracted: 2},
		{Category: models.Category{Label: "PRE-ROLLS"}, Status: StatusFailed, Err: ErrNotReady},
		{Category: models.Category{Label: "VAPORIZERS"}, Status: StatusFailed},
	}}

	run := report.Summary("scrape")
	assert.Equal(t, 2, report.Failed())
	assert.Equal(t, report.Failed(), run.Failed())
	assert.Equal(t, models.OutcomeFailed, run.Categories[2].Status)
	assert.Empty(t, run.Categories[2].Error)
}
