package browser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/maltedev/dispensary-scraper/internal/render"
)

// Document is a parsed HTML snapshot of a page that has already been
// rendered, e.g. one saved from the browser's dev tools.
type Document struct {
	doc *goquery.Document
}

func ParseHTML(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{doc: doc}, nil
}

func ParseHTMLString(html string) (*Document, error) {
	return ParseHTML(strings.NewReader(html))
}

func (d *Document) QuerySelectorAll(ctx context.Context, selector string) ([]render.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return (&Node{sel: d.doc.Selection}).QuerySelectorAll(selector)
}

// Root returns the document element.
func (d *Document) Root() *Node {
	return &Node{sel: d.doc.Selection}
}

// Node is a goquery-backed render.Element.
type Node struct {
	sel *goquery.Selection
}

var _ render.Element = (*Node)(nil)

func (n *Node) QuerySelector(selector string) (render.Element, error) {
	match, err := find(n.sel, selector)
	if err != nil {
		return nil, err
	}
	if match.Length() == 0 {
		return nil, nil
	}
	return &Node{sel: match.First()}, nil
}

func (n *Node) QuerySelectorAll(selector string) ([]render.Element, error) {
	match, err := find(n.sel, selector)
	if err != nil {
		return nil, err
	}

	nodes := make([]render.Element, 0, match.Length())
	match.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &Node{sel: s})
	})
	return nodes, nil
}

// InnerText approximates the browser's innerText: inline text is joined
// as-is, block elements start a new line, scripts and styles are dropped.
func (n *Node) InnerText() (string, error) {
	var b strings.Builder
	writeText(&b, n.sel)

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (n *Node) Attribute(name string) (string, error) {
	value, _ := n.sel.Attr(name)
	return value, nil
}

func (n *Node) Click() error {
	return render.ErrNotInteractive
}

// find wraps Selection.Find, which silently matches nothing on a selector
// cascadia rejects.
func find(sel *goquery.Selection, selector string) (*goquery.Selection, error) {
	if _, err := cascadia.Compile(selector); err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return sel.Find(selector), nil
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "section": true, "table": true, "tr": true, "ul": true,
}

func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch {
		case name == "#text":
			b.WriteString(c.Text())
		case name == "script" || name == "style" || name == "noscript" || strings.HasPrefix(name, "#"):
		case blockElements[name]:
			b.WriteByte('\n')
			writeText(b, c)
			b.WriteByte('\n')
		default:
			writeText(b, c)
		}
	})
}
