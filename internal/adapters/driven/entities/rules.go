// Package entities extracts organisational entities from query text
// with a configured vocabulary and a fixed set of patterns.
package entities

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// Entity types produced by the pattern rules.
const (
	TypeVersion = "version"
	TypeTicket  = "ticket"
	TypeURL     = "url"
	TypeEmail   = "email"
)

// DefaultVocabulary is used when no vocabulary is configured.
var DefaultVocabulary = map[string][]string{
	"system":     {"confluence", "sharepoint", "jira", "slack", "github", "google drive"},
	"department": {"engineering", "product", "marketing", "sales"},
	"technology": {"python", "javascript", "react", "docker", "kubernetes", "redis", "postgres"},
}

type rule struct {
	kind    string
	pattern *regexp.Regexp
}

// Patterns are tried before the vocabulary so a URL wins over the words inside it.
var patternRules = []rule{
	{TypeURL, regexp.MustCompile(`https?://[^\s]+`)},
	{TypeEmail, regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{TypeTicket, regexp.MustCompile(`\b[A-Z]{2,}-?\d{2,}\b`)},
	{TypeVersion, regexp.MustCompile(`\bv?\d+\.\d+(?:\.\d+)?\b`)},
}

type match struct {
	start, end int
	entity     domain.Entity
}

// RuleExtractor implements driven.EntityExtractor without any remote calls.
type RuleExtractor struct {
	rules []rule
}

var _ driven.EntityExtractor = (*RuleExtractor)(nil)

// NewRuleExtractor builds an extractor. An empty vocabulary selects DefaultVocabulary.
func NewRuleExtractor(vocabulary map[string][]string) *RuleExtractor {
	if len(vocabulary) == 0 {
		vocabulary = DefaultVocabulary
	}

	rules := make([]rule, 0, len(patternRules)+len(vocabulary))
	rules = append(rules, patternRules...)

	kinds := make([]string, 0, len(vocabulary))
	for kind := range vocabulary {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		terms := make([]string, 0, len(vocabulary[kind]))
		for _, term := range vocabulary[kind] {
			term = strings.TrimSpace(term)
			if term != "" {
				terms = append(terms, regexp.QuoteMeta(term))
			}
		}
		if len(terms) == 0 {
			continue
		}
		// Longest alternatives first so "google drive" beats "google".
		sort.Slice(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
		rules = append(rules, rule{
			kind:    kind,
			pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(terms, "|") + `)\b`),
		})
	}
	return &RuleExtractor{rules: rules}
}

// Extract returns entities in order of appearance. Overlapping matches keep
// the earlier rule; repeated entities are reported once.
func (e *RuleExtractor) Extract(ctx context.Context, text string) ([]domain.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var accepted []match
	for _, r := range e.rules {
		for _, loc := range r.pattern.FindAllStringIndex(text, -1) {
			m := match{
				start:  loc[0],
				end:    loc[1],
				entity: domain.Entity{Text: text[loc[0]:loc[1]], Type: r.kind},
			}
			if !overlaps(accepted, m) {
				accepted = append(accepted, m)
			}
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })

	seen := make(map[domain.Entity]bool, len(accepted))
	entities := make([]domain.Entity, 0, len(accepted))
	for _, m := range accepted {
		key := domain.Entity{Text: strings.ToLower(m.entity.Text), Type: m.entity.Type}
		if seen[key] {
			continue
		}
		seen[key] = true
		entities = append(entities, m.entity)
	}
	return entities, nil
}

func overlaps(accepted []match, m match) bool {
	for _, a := range accepted {
		if m.start < a.end && a.start < m.end {
			return true
		}
	}
	return false
}
