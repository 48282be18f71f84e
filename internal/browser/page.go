package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/dispensary-scraper/internal/render"
)

// Page adapts a playwright page to render.Page.
type Page struct {
	page playwright.Page
}

var _ render.Page = (*Page)(nil)

func (p *Page) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   millis(timeout),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, translate(err))
	}
	return nil
}

func (p *Page) WaitForFunction(ctx context.Context, expression string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := p.page.WaitForFunction(expression, nil, playwright.PageWaitForFunctionOptions{
		Timeout: millis(timeout),
	})
	if err != nil {
		return fmt.Errorf("failed waiting for function: %w", translate(err))
	}
	return nil
}

func (p *Page) WaitForVisible(ctx context.Context, selector string, timeout time.Duration) (render.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	handle, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed waiting for %s: %w", selector, translate(err))
	}
	if handle == nil {
		return nil, fmt.Errorf("no element for %s: %w", selector, render.ErrTimeout)
	}
	return &Element{handle: handle}, nil
}

func (p *Page) QuerySelectorAll(ctx context.Context, selector string) ([]render.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, translate(err))
	}
	return wrapHandles(handles), nil
}

func (p *Page) Evaluate(ctx context.Context, expression string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := p.page.Evaluate(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate script: %w", translate(err))
	}
	return result, nil
}

func (p *Page) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Page) Close() error {
	return p.page.Close()
}

// Element adapts a playwright element handle to render.Element.
type Element struct {
	handle playwright.ElementHandle
}

var _ render.Element = (*Element)(nil)

func (e *Element) QuerySelector(selector string) (render.Element, error) {
	handle, err := e.handle.QuerySelector(selector)
	if err != nil {
		return nil, translate(err)
	}
	if handle == nil {
		return nil, nil
	}
	return &Element{handle: handle}, nil
}

func (e *Element) QuerySelectorAll(selector string) ([]render.Element, error) {
	handles, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, translate(err)
	}
	return wrapHandles(handles), nil
}

func (e *Element) InnerText() (string, error) {
	text, err := e.handle.InnerText()
	if err != nil {
		return "", translate(err)
	}
	return text, nil
}

func (e *Element) Attribute(name string) (string, error) {
	value, err := e.handle.GetAttribute(name)
	if err != nil {
		return "", translate(err)
	}
	return value, nil
}

func (e *Element) Click() error {
	return translate(e.handle.Click())
}

func wrapHandles(handles []playwright.ElementHandle) []render.Element {
	elements := make([]render.Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &Element{handle: h})
	}
	return elements
}

// translate maps playwright timeouts onto render.ErrTimeout.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", render.ErrTimeout, err)
	}
	return err
}

func millis(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}
