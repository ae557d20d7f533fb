package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// noiseSelector matches elements whose text never renders.
const noiseSelector = "script, style, noscript, template, head"

// parse parses raw HTML into a goquery document with noise removed.
func parse(rawHTML string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)
	doc.Find(noiseSelector).Remove()
	return doc, nil
}

// VisibleText returns the whitespace-normalized text a reader would see on
// the page: script, style and similar content is dropped.
func VisibleText(rawHTML string) (string, error) {
	doc, err := parse(rawHTML)
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	collectText(doc.Selection, &builder)
	return NormalizeSpace(builder.String()), nil
}

// collectText writes the text nodes below sel in document order, separated
// by a space so adjacent block elements do not glue words together.
func collectText(sel *goquery.Selection, builder *strings.Builder) {
	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		if goquery.NodeName(child) == "#text" {
			builder.WriteString(child.Text())
			builder.WriteByte(' ')
			return
		}
		collectText(child, builder)
	})
}

// NormalizeSpace trims s and collapses inner whitespace runs to one space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TextMatches reports whether a rendered text equals want exactly, up to
// whitespace. Rendered text follows CSS transforms, so labels are configured
// the way the page displays them.
func TextMatches(text, want string) bool {
	return NormalizeSpace(text) == NormalizeSpace(want)
}

// ContainsText reports whether haystack contains needle, ignoring case and
// whitespace differences.
func ContainsText(haystack, needle string) bool {
	return strings.Contains(
		strings.ToLower(NormalizeSpace(haystack)),
		strings.ToLower(NormalizeSpace(needle)),
	)
}
