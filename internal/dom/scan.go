package dom

import (
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Matcher decides whether an element's collapsed text is an anchor.
type Matcher func(text string) bool

func Contains(s string) Matcher {
	return func(text string) bool { return strings.Contains(text, s) }
}

func Equals(s string) Matcher {
	return func(text string) bool { return text == s }
}

// Regexp matches text against re.
func Regexp(re *regexp.Regexp) Matcher {
	return re.MatchString
}

// AnyOf matches when any of ms does.
func AnyOf(ms ...Matcher) Matcher {
	return func(text string) bool {
		for _, m := range ms {
			if m(text) {
				return true
			}
		}
		return false
	}
}

// Region yields the containers to search around an anchor, nearest first.
type Region func(anchor *html.Node) []*html.Node

// Self searches the anchor element only.
func Self() Region {
	return func(anchor *html.Node) []*html.Node { return []*html.Node{anchor} }
}

// Ancestors searches the anchor's parent, grandparent and so on, up to n
// levels.
func Ancestors(n int) Region {
	return func(anchor *html.Node) []*html.Node {
		var out []*html.Node
		for p := anchor.Parent; p != nil && len(out) < n; p = p.Parent {
			if p.Type == html.ElementNode {
				out = append(out, p)
			}
		}
		return out
	}
}

// Siblings searches the anchor's following siblings, then its preceding ones
// from nearest to farthest.
func Siblings() Region {
	return func(anchor *html.Node) []*html.Node {
		var out []*html.Node
		for s := anchor.NextSibling; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode && !skipped(s) {
				out = append(out, s)
			}
		}
		for s := anchor.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode && !skipped(s) {
				out = append(out, s)
			}
		}
		return out
	}
}

// OutsideOf yields r's containers unless the anchor sits inside an element
// named by one of tags.
func OutsideOf(r Region, tags ...string) Region {
	return func(anchor *html.Node) []*html.Node {
		for n := anchor; n != nil; n = n.Parent {
			if n.Type == html.ElementNode && slices.Contains(tags, n.Data) {
				return nil
			}
		}
		return r(anchor)
	}
}

// Chain concatenates regions in order.
func Chain(regions ...Region) Region {
	return func(anchor *html.Node) []*html.Node {
		var out []*html.Node
		for _, r := range regions {
			out = append(out, r(anchor)...)
		}
		return out
	}
}

// Scan finds an element whose text matches Anchor, then searches the
// containers produced by Region for the first element whose text matches
// Shape. The submatch at Group is the result.
type Scan struct {
	Anchor Matcher
	Region Region
	Shape  *regexp.Regexp
	Group  int
}

// Scan returns the result of the first anchor, in document order, with a
// match.
func (d *Document) Scan(s Scan) (string, bool) {
	for _, anchor := range d.findLabelNodes(s.Anchor) {
		if v, ok := d.scanAround(anchor, s, nil); ok {
			return v, true
		}
	}
	return "", false
}

// ScanIn is Scan restricted to section: anchors outside it are ignored and
// containers reaching above it are not searched.
func (d *Document) ScanIn(section *goquery.Selection, s Scan) (string, bool) {
	if section == nil || section.Length() == 0 {
		return "", false
	}
	bound := section.Get(0)
	for _, anchor := range d.findLabelNodes(s.Anchor) {
		if !inside(bound, anchor) {
			continue
		}
		if v, ok := d.scanAround(anchor, s, bound); ok {
			return v, true
		}
	}
	return "", false
}

// ScanLast is Scan with anchors visited from the end of the document.
func (d *Document) ScanLast(s Scan) (string, bool) {
	anchors := d.findLabelNodes(s.Anchor)
	for i := len(anchors) - 1; i >= 0; i-- {
		if v, ok := d.scanAround(anchors[i], s, nil); ok {
			return v, true
		}
	}
	return "", false
}

// ScanAny tries each scan in turn.
func (d *Document) ScanAny(scans ...Scan) (string, bool) {
	for _, s := range scans {
		if v, ok := d.Scan(s); ok {
			return v, true
		}
	}
	return "", false
}

func (d *Document) scanAround(anchor *html.Node, s Scan, bound *html.Node) (string, bool) {
	region := s.Region
	if region == nil {
		region = Self()
	}
	for _, container := range region(anchor) {
		if bound != nil && !inside(bound, container) {
			continue
		}
		for _, n := range append(descendants(container), container) {
			if v, ok := d.match(n, s); ok {
				return v, true
			}
		}
	}
	return "", false
}

// inside reports whether n is root or one of its descendants.
func inside(root, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

func (d *Document) match(n *html.Node, s Scan) (string, bool) {
	m := s.Shape.FindStringSubmatch(d.nodeText(n))
	if m == nil || s.Group >= len(m) {
		return "", false
	}
	return m[s.Group], true
}

// MatchText applies re to every element of the document and returns the
// submatches of the first hit.
func (d *Document) MatchText(re *regexp.Regexp) []string {
	for _, n := range d.allElements() {
		if m := re.FindStringSubmatch(d.nodeText(n)); m != nil {
			return m
		}
	}
	return nil
}

// Descendants wraps descendants for callers that walk sections manually.
func Descendants(sel *goquery.Selection) []*goquery.Selection {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	return wrap(descendants(sel.Get(0)))
}
