package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"message header", `<div class="message">Results for <strong>« "road bike" »</strong></div>`, "Road Bike"},
		{"content fallback", `<div class="content"><span>x</span></div><div class="content"><strong>"mountain bIKE"</strong></div>`, "Mountain BIKE"},
		{"collapses spaces", `<div class="message"><strong>  used   skis </strong></div>`, "Used Skis"},
		{"non ascii", `<div class="message"><strong>«éclair maker»</strong></div>`, "Éclair Maker"},
		{"no header", `<div><strong>not a header</strong></div>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			if err != nil {
				t.Fatal(err)
			}
			if got := ExtractTitle(doc); got != tt.want {
				t.Fatalf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
