package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Field limits applied after cleaning. Writes larger than these would
// overflow the varchar columns in storage.
const (
	TitleLimit       = 500
	DescriptionLimit = 2000
	ContentLimit     = 5000
)

// Clean strips markup from feed-supplied text and collapses whitespace.
// Script and style subtrees are removed entirely. Malformed input never
// fails: when the parser cannot build a document the raw text is collapsed
// as-is. Empty input yields empty output.
func Clean(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return collapse(raw)
	}
	doc.Find("script, style").Remove()
	return collapse(doc.Text())
}

// Truncate cuts s to at most limit runes. Cutting by runes keeps multibyte
// text valid; byte slicing could split a character.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
