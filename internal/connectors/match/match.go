// Package match scores and excerpts documents for sources whose upstream
// search returns no comparable score of its own.
package match

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// ConfigPrincipals is the source config key listing who may view its documents.
const ConfigPrincipals = "principals"

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Terms splits a normalized query into distinct search terms.
func Terms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-'
	})

	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".-")
		if len([]rune(f)) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// Score rates a document against terms. Title hits weigh more than body hits.
// The result is in [0,1].
func Score(terms []string, title, body string) float64 {
	if len(terms) == 0 {
		return 0
	}
	title = strings.ToLower(title)
	body = strings.ToLower(body)

	var inTitle, inBody int
	for _, t := range terms {
		if strings.Contains(title, t) {
			inTitle++
		}
		if strings.Contains(body, t) {
			inBody++
		}
	}
	n := float64(len(terms))
	return 0.6*float64(inTitle)/n + 0.4*float64(inBody)/n
}

// Matches reports whether any term occurs in the title or body.
func Matches(terms []string, title, body string) bool {
	return Score(terms, title, body) > 0
}

// Excerpt returns about maxRunes of text around the first term occurrence.
func Excerpt(text string, terms []string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}

	lower := []rune(strings.ToLower(text))
	start := 0
	for _, t := range terms {
		if i := indexRunes(lower, []rune(t)); i >= 0 {
			start = max(0, i-maxRunes/4)
			break
		}
	}
	end := min(len(runes), start+maxRunes)
	if end-start < maxRunes {
		start = max(0, end-maxRunes)
	}

	out := string(runes[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}

// StripHTML removes tags and unescapes entities.
func StripHTML(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, " "))
}

// Principals returns the permission descriptor configured for a source.
// Without a principals key documents are public; an empty value makes the
// extra principals the only grant.
func Principals(config map[string]string, extra ...string) []string {
	var out []string
	raw, ok := config[ConfigPrincipals]
	if !ok {
		out = append(out, domain.PrincipalEveryone)
	}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return append(out, extra...)
}

// SplitList parses a comma-separated config value.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func indexRunes(haystack, needle []rune) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
