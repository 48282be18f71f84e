package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/maltedev/dispensary-scraper/internal/browser"
	"github.com/maltedev/dispensary-scraper/internal/render"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockPage is a mock for render.Page
type MockPage struct {
	mock.Mock
}

func (m *MockPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	return m.Called(ctx, url, timeout).Error(0)
}

func (m *MockPage) WaitForFunction(ctx context.Context, expression string, timeout time.Duration) error {
	return m.Called(ctx, expression, timeout).Error(0)
}

func (m *MockPage) WaitForVisible(ctx context.Context, selector string, timeout time.Duration) (render.Element, error) {
	args := m.Called(ctx, selector, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(render.Element), args.Error(1)
}

func (m *MockPage) QuerySelectorAll(ctx context.Context, selector string) ([]render.Element, error) {
	args := m.Called(ctx, selector)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]render.Element), args.Error(1)
}

func (m *MockPage) Evaluate(ctx context.Context, expression string) (any, error) {
	args := m.Called(ctx, expression)
	return args.Get(0), args.Error(1)
}

func (m *MockPage) Pause(ctx context.Context, d time.Duration) error {
	return m.Called(ctx, d).Error(0)
}

// MockButton is a mock for a clickable render.Element
type MockButton struct {
	mock.Mock
}

func (m *MockButton) QuerySelector(string) (render.Element, error)      { return nil, nil }
func (m *MockButton) QuerySelectorAll(string) ([]render.Element, error) { return nil, nil }
func (m *MockButton) InnerText() (string, error)                        { return "Yes", nil }
func (m *MockButton) Attribute(string) (string, error)                  { return "", nil }

func (m *MockButton) Click() error {
	return m.Called().Error(0)
}

// fakeSite serves HTML fixtures as if they were rendered pages. Readiness
// times out on pages without any card, like the real site does when a
// category is empty or broken.
type fakeSite struct {
	pages     map[string]string
	selectors []string

	current  *browser.Document
	visited  []string
	scrolls  int
	pauses   []time.Duration
	heightOf func(scroll int) float64
}

func newFakeSite(pages map[string]string) *fakeSite {
	return &fakeSite{
		pages:     pages,
		selectors: DefaultCardSelectors(),
		heightOf:  func(int) float64 { return 1000 },
	}
}

func (f *fakeSite) Goto(ctx context.Context, url string, _ time.Duration) error {
	html, ok := f.pages[url]
	if !ok {
		return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", url)
	}
	doc, err := browser.ParseHTMLString(html)
	if err != nil {
		return err
	}
	f.current = doc
	f.visited = append(f.visited, url)
	return nil
}

func (f *fakeSite) WaitForFunction(ctx context.Context, _ string, _ time.Duration) error {
	for _, selector := range f.selectors {
		found, err := f.current.QuerySelectorAll(ctx, selector)
		if err != nil {
			return err
		}
		if len(found) > 0 {
			return nil
		}
	}
	return fmt.Errorf("waiting for cards: %w", render.ErrTimeout)
}

func (f *fakeSite) WaitForVisible(ctx context.Context, selector string, _ time.Duration) (render.Element, error) {
	found, err := f.current.QuerySelectorAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("waiting for %s: %w", selector, render.ErrTimeout)
	}
	return found[0], nil
}

func (f *fakeSite) QuerySelectorAll(ctx context.Context, selector string) ([]render.Element, error) {
	return f.current.QuerySelectorAll(ctx, selector)
}

func (f *fakeSite) Evaluate(ctx context.Context, expression string) (any, error) {
	switch expression {
	case scrollHeightScript:
		return f.heightOf(f.scrolls), nil
	case scrollToBottomScript:
		f.scrolls++
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected script %q", expression)
	}
}

func (f *fakeSite) Pause(ctx context.Context, d time.Duration) error {
	f.pauses = append(f.pauses, d)
	return ctx.Err()
}
