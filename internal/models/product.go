package models

import (
	"regexp"
)

const (
	// UnknownName marks a card whose name could not be read.
	UnknownName = "Unknown"
	// NoPrice is used when a card carries no price evidence.
	NoPrice = "$0.00"
	// NoMeta is used when a card carries no potency descriptor.
	NoMeta = "N/A"
)

var pricePattern = regexp.MustCompile(`^\$\d+\.\d{2}$`)

// Category is one listing page to scrape.
type Category struct {
	Label string `json:"label" mapstructure:"label"`
	URL   string `json:"url" mapstructure:"url"`
}

// Product is one normalized catalog entry.
type Product struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Meta     string `json:"meta"`
	Category string `json:"category"`
	Image    string `json:"image"`
	URL      string `json:"url"`
}

func NewProduct(name, category string) *Product {
	return &Product{
		Name:     name,
		Price:    NoPrice,
		Meta:     NoMeta,
		Category: category,
	}
}

func (p *Product) Validate() []string {
	var errors []string

	if p.Name == "" || p.Name == UnknownName {
		errors = append(errors, "Name is required")
	}

	if !pricePattern.MatchString(p.Price) {
		errors = append(errors, "Invalid price")
	}

	if p.Meta == "" {
		errors = append(errors, "Meta is required")
	}

	if p.Category == "" {
		errors = append(errors, "Category is required")
	}

	return errors
}
