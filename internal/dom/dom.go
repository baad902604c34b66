// Package dom wraps goquery with the text-oriented queries the extractors
// need: whitespace-collapsed text, innermost label lookup and the
// label-anchored Scan combinator.
package dom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed page. It memoises node text and is not safe for
// concurrent use; every scrape parses its own Document.
type Document struct {
	doc      *goquery.Document
	rawText  map[*html.Node]string
	text     map[*html.Node]string
	elements []*html.Node
}

// Parse builds a Document from raw HTML. Malformed markup is repaired by the
// HTML5 parser, so an error means the reader itself failed.
func Parse(page []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{
		doc:     doc,
		rawText: make(map[*html.Node]string),
		text:    make(map[*html.Node]string),
	}, nil
}

// skipped elements never contribute text and are never matched.
func skipped(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "script", "style", "noscript", "template", "head":
		return true
	}
	return false
}

// Root is the document selection.
func (d *Document) Root() *goquery.Selection {
	return d.doc.Selection
}

// Find runs a CSS selector over the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// FindAll is Find split into one selection per matched element.
func (d *Document) FindAll(selector string) []*goquery.Selection {
	return Split(d.doc.Find(selector))
}

// Split returns one selection per node of sel.
func Split(sel *goquery.Selection) []*goquery.Selection {
	out := make([]*goquery.Selection, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out
}

// Text is the trimmed, whitespace-collapsed text content of sel. Script and
// style content is ignored.
func (d *Document) Text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	if sel.Length() == 1 {
		return d.nodeText(sel.Get(0))
	}
	parts := make([]string, 0, sel.Length())
	for _, n := range sel.Nodes {
		if t := d.nodeText(n); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (d *Document) nodeText(n *html.Node) string {
	if t, ok := d.text[n]; ok {
		return t
	}
	t := Collapse(d.nodeRawText(n))
	d.text[n] = t
	return t
}

func (d *Document) nodeRawText(n *html.Node) string {
	switch {
	case n.Type == html.TextNode:
		return n.Data
	case skipped(n):
		return ""
	}
	if t, ok := d.rawText[n]; ok {
		return t
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(d.nodeRawText(c))
	}
	t := b.String()
	d.rawText[n] = t
	return t
}

// SpacedText is Text with a space between every text node, so adjacent inline
// elements such as "<b>SYM</b><i>Name</i>" read as "SYM Name". Not memoised.
func SpacedText(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			parts = append(parts, n.Data)
			return
		case skipped(n):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return Collapse(strings.Join(parts, " "))
}

// Collapse trims s and folds every whitespace run into a single space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// allElements lists every matchable element in document order.
func (d *Document) allElements() []*html.Node {
	if d.elements != nil {
		return d.elements
	}
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if skipped(n) {
			return
		}
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range d.doc.Nodes {
		walk(root)
	}
	d.elements = out
	return out
}

// descendants lists the matchable element descendants of n in document
// order, n excluded.
func descendants(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || skipped(c) {
				continue
			}
			out = append(out, c)
			walk(c)
		}
	}
	walk(n)
	return out
}

func wrap(nodes []*html.Node) []*goquery.Selection {
	out := make([]*goquery.Selection, len(nodes))
	for i, n := range nodes {
		out[i] = selectionOf(n)
	}
	return out
}

func selectionOf(n *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Selection
}

// FindByTextContains returns every element, in document order, whose text
// contains substr. Ancestors of a match match too.
func (d *Document) FindByTextContains(substr string) []*goquery.Selection {
	var out []*html.Node
	for _, n := range d.allElements() {
		if strings.Contains(d.nodeText(n), substr) {
			out = append(out, n)
		}
	}
	return wrap(out)
}

// FindLabel returns the innermost elements whose text satisfies m: no child
// element of a result satisfies m as well.
func (d *Document) FindLabel(m Matcher) []*goquery.Selection {
	return wrap(d.findLabelNodes(m))
}

func (d *Document) findLabelNodes(m Matcher) []*html.Node {
	var out []*html.Node
	for _, n := range d.allElements() {
		if !m(d.nodeText(n)) {
			continue
		}
		innermost := true
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && !skipped(c) && m(d.nodeText(c)) {
				innermost = false
				break
			}
		}
		if innermost {
			out = append(out, n)
		}
	}
	return out
}

// ClosestAncestor returns the nearest proper ancestor of sel satisfying pred,
// or nil.
func ClosestAncestor(sel *goquery.Selection, pred func(*goquery.Selection) bool) *goquery.Selection {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	for p := sel.Get(0).Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		s := selectionOf(p)
		if pred(s) {
			return s
		}
	}
	return nil
}

// ScriptTexts returns the raw content of every inline script.
func (d *Document) ScriptTexts() []string {
	var out []string
	d.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, hasSrc := s.Attr("src"); hasSrc {
			return
		}
		if t := s.Text(); strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	})
	return out
}

// HasClassContaining reports whether any class of sel contains substr.
func HasClassContaining(sel *goquery.Selection, substr string) bool {
	class, ok := sel.Attr("class")
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(class), strings.ToLower(substr))
}
