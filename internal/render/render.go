// Package render describes the capabilities the scraper needs from a
// rendering engine. internal/browser provides a playwright-backed
// implementation for live pages and a goquery-backed one for saved HTML.
package render

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when a bounded wait expires.
	ErrTimeout = errors.New("render: timeout")
	// ErrNotInteractive is returned by elements that cannot be clicked,
	// such as nodes of a static HTML snapshot.
	ErrNotInteractive = errors.New("render: element is not interactive")
)

// Element is a handle to one node of the rendered DOM.
type Element interface {
	// QuerySelector returns the first matching descendant, or nil when
	// nothing matches.
	QuerySelector(selector string) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)
	InnerText() (string, error)
	// Attribute returns "" when the attribute is missing.
	Attribute(name string) (string, error)
	Click() error
}

// Page is a single rendered page session.
type Page interface {
	// Goto navigates and waits for DOMContentLoaded.
	Goto(ctx context.Context, url string, timeout time.Duration) error
	// WaitForFunction waits until the expression evaluates truthy.
	WaitForFunction(ctx context.Context, expression string, timeout time.Duration) error
	// WaitForVisible waits until selector matches a visible element.
	WaitForVisible(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	QuerySelectorAll(ctx context.Context, selector string) ([]Element, error)
	Evaluate(ctx context.Context, expression string) (any, error)
	Pause(ctx context.Context, d time.Duration) error
}
