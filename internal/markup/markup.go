// Package markup holds the small tag-tree helpers shared by the timetable
// extractor and the week-date resolver.
package markup

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse builds a tag tree from page markup. The HTML5 parser never fails on
// malformed input, it only reports reader errors, so a nil node means there is
// nothing usable.
func Parse(page string) *html.Node {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}
	return doc
}

// FindAll returns every descendant element of n with the given tag, in
// document order. Elements nested inside a match are still visited.
func FindAll(n *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == tag {
				out = append(out, c)
			}
			walk(c.FirstChild)
		}
	}
	if n != nil {
		walk(n.FirstChild)
	}
	return out
}

// Rows returns the <tr> elements of a table without descending into nested
// tables.
func Rows(table *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				continue
			case atom.Tr:
				out = append(out, c)
				continue
			}
			walk(c.FirstChild)
		}
	}
	if table != nil {
		walk(table.FirstChild)
	}
	return out
}

// Cells returns the direct children of row with the given tag (td or th).
func Cells(row *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == tag {
			out = append(out, c)
		}
	}
	return out
}

// InnerMarkup renders the children of n back to markup.
func InnerMarkup(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			break
		}
	}
	return buf.String()
}

// Lines returns the non-blank text lines of n, treating every element
// boundary as a line break.
func Lines(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				for _, l := range strings.Split(c.Data, "\n") {
					if l = strings.TrimSpace(l); l != "" {
						out = append(out, l)
					}
				}
			case html.ElementNode:
				if c.DataAtom == atom.Script || c.DataAtom == atom.Style {
					continue
				}
				walk(c.FirstChild)
			}
		}
	}
	if n != nil {
		walk(n.FirstChild)
	}
	return out
}

// Text returns the whitespace-collapsed text of n.
func Text(n *html.Node) string {
	return strings.Join(strings.Fields(strings.Join(Lines(n), " ")), " ")
}
