package parser

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is a markdown heading found in a document body.
type Heading struct {
	Level int
	Text  string
}

// ExtractHeadings extracts headings from a markdown body using goldmark.
func ExtractHeadings(body string) []Heading {
	var headings []Heading

	md := goldmark.New()
	source := []byte(body)
	doc := md.Parser().Parse(text.NewReader(source))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		var b strings.Builder
		for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
			if textNode, ok := child.(*ast.Text); ok {
				b.Write(textNode.Segment.Value(source))
			}
		}
		if title := strings.TrimSpace(b.String()); title != "" {
			headings = append(headings, Heading{Level: heading.Level, Text: title})
		}
		return ast.WalkContinue, nil
	})

	return headings
}

// HasHeading reports whether the body contains a heading with the given
// text, at any level. Comparison is case-insensitive.
func HasHeading(body, title string) bool {
	for _, h := range ExtractHeadings(body) {
		if strings.EqualFold(h.Text, title) {
			return true
		}
	}
	return false
}
