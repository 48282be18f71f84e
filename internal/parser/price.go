package parser

import (
	"fmt"
	"strconv"

	"github.com/maltedev/dispensary-scraper/internal/models"
	"github.com/maltedev/dispensary-scraper/internal/render"
)

// extractPrice prefers the lowest amount found on price-tagged elements,
// which is the discounted price when both original and discount are shown.
// Without tagged prices the first dollar amount anywhere on the card wins.
func (e *CardExtractor) extractPrice(card render.Element, cardText string) (string, error) {
	amounts, err := e.taggedAmounts(card)
	if err != nil {
		return "", err
	}

	if lowest, ok := minimum(amounts); ok {
		return formatPrice(lowest), nil
	}

	if match := e.currencyPattern.FindStringSubmatch(cardText); match != nil {
		if value, err := strconv.ParseFloat(match[1], 64); err == nil {
			return formatPrice(value), nil
		}
	}

	return models.NoPrice, nil
}

// taggedAmounts collects every positive amount from the price and discount
// elements of a card. The numeric suffix of the test id attribute is only
// consulted when the element's text has no dollar amount.
func (e *CardExtractor) taggedAmounts(card render.Element) ([]float64, error) {
	elements, err := card.QuerySelectorAll(e.selectors.Price)
	if err != nil {
		return nil, err
	}

	var amounts []float64
	for _, el := range elements {
		text, err := el.InnerText()
		if err != nil {
			return nil, err
		}

		matches := e.currencyPattern.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			testID, err := el.Attribute(e.selectors.TestIDAttribute)
			if err != nil {
				return nil, err
			}
			if match := e.attributePricePattern.FindStringSubmatch(testID); match != nil {
				matches = [][]string{match}
			}
		}

		for _, match := range matches {
			value, err := strconv.ParseFloat(match[1], 64)
			if err != nil || value <= 0 {
				continue
			}
			amounts = append(amounts, value)
		}
	}

	return amounts, nil
}

func minimum(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	lowest := values[0]
	for _, v := range values[1:] {
		if v < lowest {
			lowest = v
		}
	}
	return lowest, true
}

func formatPrice(value float64) string {
	return fmt.Sprintf("$%.2f", value)
}
