package services

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
	"github.com/custodia-labs/navo/internal/logger"
)

// maxKeywords caps the keywords kept per query.
const maxKeywords = 10

// intentRule scores one intent by the number of its patterns found in a query.
type intentRule struct {
	intent   domain.Intent
	patterns []*regexp.Regexp
}

// intentRules are evaluated in declaration order; on equal scores the
// earlier rule wins.
var intentRules = []intentRule{
	{domain.IntentTroubleshooting, wordPatterns(
		"error", "errors", "fail", "failed", "failing", "failure", "broken", "issue", "issues",
		"problem", "fix", "troubleshoot", "debug", "crash", "crashing", "not working",
		"exception", "outage", "timeout",
	)},
	{domain.IntentProcedural, wordPatterns(
		"how to", "how do", "how can", "steps", "step by step", "procedure", "guide", "runbook",
		"instructions", "setup", "set up", "install", "configure", "process",
	)},
	{domain.IntentFactual, wordPatterns(
		"what is", "what are", "what does", "who", "when", "which", "define", "definition",
		"meaning", "explain",
	)},
	{domain.IntentDiscovery, wordPatterns(
		"find", "search", "list", "show", "look for", "where", "locate", "related",
		"overview", "documentation", "docs",
	)},
}

// stopWords are dropped from keywords.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "for": {}, "with": {}, "are": {}, "was": {}, "were": {},
	"been": {}, "have": {}, "has": {}, "had": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"could": {}, "should": {}, "can": {}, "may": {}, "might": {}, "must": {}, "you": {},
	"she": {}, "they": {}, "this": {}, "that": {}, "these": {}, "those": {}, "what": {},
	"where": {}, "when": {}, "why": {}, "how": {}, "our": {}, "from": {}, "into": {},
}

func wordPatterns(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}

// QueryProcessor turns raw text into an enriched, fingerprinted Query.
type QueryProcessor struct {
	settings  domain.QuerySettings
	extractor driven.EntityExtractor
}

// NewQueryProcessor creates a query processor.
// The extractor is optional (can be nil).
func NewQueryProcessor(settings domain.QuerySettings, extractor driven.EntityExtractor) *QueryProcessor {
	return &QueryProcessor{
		settings:  settings,
		extractor: extractor,
	}
}

// Process validates, normalizes and classifies raw query text.
func (p *QueryProcessor) Process(
	ctx context.Context, raw string, caller domain.CallerContext, filters domain.QueryFilters,
) (*domain.Query, error) {
	if n := utf8.RuneCountInString(raw); n > p.settings.MaxChars {
		return nil, domain.NewInputError(domain.ErrQueryTooLong, "%d characters exceeds limit of %d", n, p.settings.MaxChars)
	}

	normalized := Normalize(raw)
	tokens := strings.Fields(domain.CanonicalText(normalized))
	if len(tokens) < p.settings.MinTokens {
		return nil, domain.NewInputError(domain.ErrEmptyQuery, "%d token(s), need at least %d", len(tokens), p.settings.MinTokens)
	}

	intent := ClassifyIntent(normalized)
	entities := p.extractEntities(ctx, norm.NFKC.String(strings.TrimSpace(raw)))

	filters = domain.QueryFilters{
		Sources:         canonicalSources(filters.Sources),
		PermissionScope: filters.PermissionScope,
	}

	q := &domain.Query{
		Raw:         raw,
		Normalized:  normalized,
		Keywords:    Keywords(normalized),
		Intent:      intent,
		Entities:    entities,
		Caller:      caller,
		Filters:     filters,
		Fingerprint: domain.Fingerprint(normalized, filters, intent),
	}

	logger.Debug("Query processed: intent=%s entities=%d keywords=%v fingerprint=%s",
		q.Intent, len(q.Entities), q.Keywords, shortFingerprint(q.Fingerprint))

	return q, nil
}

// extractEntities runs the extractor, degrading to no entities on error or panic.
func (p *QueryProcessor) extractEntities(ctx context.Context, text string) (entities []domain.Entity) {
	if p.extractor == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Entity extraction panicked: %v (continuing without entities)", r)
			entities = nil
		}
	}()

	found, err := p.extractor.Extract(ctx, text)
	if err != nil {
		logger.Warn("Entity extraction failed: %v (continuing without entities)", err)
		return nil
	}
	return found
}

// Normalize applies Unicode compatibility folding and lowercasing, replaces
// characters other than letters, digits and ?!.- with spaces, and collapses whitespace.
func Normalize(raw string) string {
	folded := strings.ToLower(norm.NFKC.String(raw))
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == '?', r == '!', r == '.', r == '-':
			return r
		default:
			return ' '
		}
	}, folded)
	return strings.Join(strings.Fields(cleaned), " ")
}

// ClassifyIntent scores every rule against normalized text. The highest score
// wins, ties go to the earlier rule, and no match yields IntentDiscovery.
func ClassifyIntent(normalized string) domain.Intent {
	best := domain.IntentDiscovery
	bestScore := 0
	for _, rule := range intentRules {
		score := 0
		for _, re := range rule.patterns {
			if re.MatchString(normalized) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = rule.intent, score
		}
	}
	return best
}

// Keywords returns up to ten unique significant words in order of appearance.
func Keywords(normalized string) []string {
	words := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// canonicalSources returns a sorted, de-duplicated copy.
func canonicalSources(sources []string) []string {
	if len(sources) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := set[s]; ok {
			continue
		}
		set[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
