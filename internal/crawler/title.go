package crawler

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const titleCutset = "\"'“”«» \t\n"

// ExtractTitle returns the search title emphasized in the page header, e.g. `« "road bike" »`
// becomes "Road Bike". It returns "" when the page has no such header.
func ExtractTitle(doc *goquery.Document) string {
	if strong := doc.Find("div.message strong").First(); strong.Length() > 0 {
		return formatTitle(strings.Trim(strong.Text(), titleCutset))
	}

	title := ""
	doc.Find("div.content").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		strong := s.Find("strong").First()
		if strong.Length() == 0 {
			return true
		}
		title = formatTitle(strings.Trim(strong.Text(), titleCutset))
		return false
	})
	return title
}

// formatTitle upper-cases the first letter of every word and leaves the rest untouched.
func formatTitle(title string) string {
	words := strings.Fields(title)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
