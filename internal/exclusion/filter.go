package exclusion

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/IliaW/listing-alert-worker/internal/model"
)

var (
	// 613-555-0199, (613) 555 0199, 613.555.0199, 6135550199, optionally with a leading 1.
	phoneRe = regexp.MustCompile(`(?:\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)
	emailRe = regexp.MustCompile(`[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)
	digitRe = regexp.MustCompile(`\D`)
)

// Filter decides whether an ad trips one of the exclusion phrases.
// Single-word phrases must match a whole token of the ad text, multi-word phrases
// must appear verbatim in it. Phrases are tried in list order.
type Filter struct {
	phrases []phrase
}

type phrase struct {
	text string
	word bool
}

// New builds a filter from phrases. Phrases are lowercased and trimmed, empty ones dropped.
func New(phrases []string) *Filter {
	f := &Filter{}
	for _, p := range phrases {
		p = strings.ToLower(strings.Join(strings.Fields(p), " "))
		switch {
		case p == "":
		case phoneRe.FindString(p) == p:
			f.phrases = append(f.phrases, phrase{text: digitRe.ReplaceAllString(p, ""), word: true})
		default:
			f.phrases = append(f.phrases, phrase{text: p, word: !strings.Contains(p, " ")})
		}
	}
	return f
}

// IsExcluded reports whether ad is excluded by any phrase of list.
func IsExcluded(ad *model.Ad, list []string) bool {
	return New(list).IsExcluded(ad)
}

func (f *Filter) IsExcluded(ad *model.Ad) bool {
	_, ok := f.Match(ad)
	return ok
}

// Match returns the first phrase of the list that excludes ad.
func (f *Filter) Match(ad *model.Ad) (string, bool) {
	if f == nil || len(f.phrases) == 0 {
		return "", false
	}
	fullText := strings.ToLower(ad.Title) + " " + strings.ToLower(ad.Description)

	var tokens map[string]struct{}
	for _, p := range f.phrases {
		if !p.word {
			if strings.Contains(fullText, p.text) {
				return p.text, true
			}
			continue
		}
		if tokens == nil {
			tokens = Tokens(fullText)
		}
		if _, ok := tokens[p.text]; ok {
			return p.text, true
		}
	}
	return "", false
}

// Tokens returns the token set of a lowercased text: its words, their singular forms,
// phone numbers reduced to digits and email addresses. A word with a possessive or
// contracted suffix also yields its stem, "kid's" gives "kid's" and "kid".
func Tokens(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range words(text) {
		tokens[w] = struct{}{}
		if strings.ContainsRune(w, '\'') {
			continue
		}
		if s := singular(w); s != w {
			tokens[s] = struct{}{}
		}
	}
	for _, phone := range phoneRe.FindAllString(text, -1) {
		digits := digitRe.ReplaceAllString(phone, "")
		tokens[digits] = struct{}{}
		if len(digits) == 11 && digits[0] == '1' {
			tokens[digits[1:]] = struct{}{}
		}
	}
	for _, email := range emailRe.FindAllString(text, -1) {
		tokens[strings.TrimRight(email, ".")] = struct{}{}
	}
	return tokens
}

func words(text string) []string {
	text = strings.ReplaceAll(text, "’", "'")
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f == "" {
			continue
		}
		out = append(out, f)
		if i := strings.IndexByte(f, '\''); i > 0 {
			out = append(out, f[:i])
		}
	}
	return out
}

// singular folds regular English plurals: kittens -> kitten, puppies -> puppy, boxes -> box.
func singular(w string) string {
	n := len(w)
	switch {
	case n > 4 && strings.HasSuffix(w, "ies"):
		return w[:n-3] + "y"
	case n > 4 && (strings.HasSuffix(w, "xes") || strings.HasSuffix(w, "ches") || strings.HasSuffix(w, "shes") ||
		strings.HasSuffix(w, "sses")):
		return w[:n-2]
	case n > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us") &&
		!strings.HasSuffix(w, "is"):
		return w[:n-1]
	}
	return w
}
