package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Intent is the detected purpose of a query.
type Intent string

// Supported intents, in classifier declaration order.
const (
	// IntentTroubleshooting asks how to fix something that is broken.
	IntentTroubleshooting Intent = "troubleshooting"

	// IntentProcedural asks for steps to accomplish a task.
	IntentProcedural Intent = "procedural"

	// IntentFactual asks for a definition or a fact.
	IntentFactual Intent = "factual"

	// IntentDiscovery looks for documents on a topic. It is the default.
	IntentDiscovery Intent = "discovery"
)

// IsValid returns true if the intent is recognised.
func (i Intent) IsValid() bool {
	switch i {
	case IntentTroubleshooting, IntentProcedural, IntentFactual, IntentDiscovery:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (i Intent) String() string {
	return string(i)
}

// Entity is a named thing recognised in the query text.
type Entity struct {
	// Text is the entity as it appeared in the query.
	Text string `json:"text"`

	// Type classifies the entity (system, team, technology, version, ticket, url, email).
	Type string `json:"type"`
}

// CallerContext identifies who is asking. All fields are opaque strings
// supplied by the caller.
type CallerContext struct {
	UserID  string `json:"user_id"`
	Team    string `json:"team,omitempty"`
	Project string `json:"project,omitempty"`
}

// QueryFilters are the active filters that scope a query and its cache entry.
type QueryFilters struct {
	// Sources restricts the fan-out to these source IDs. Empty means all enabled.
	Sources []string `json:"sources,omitempty"`

	// PermissionScope is a digest of the caller's permission set. Two callers
	// with the same permissions share cache entries; other callers do not.
	PermissionScope string `json:"permission_scope,omitempty"`
}

// Query is the immutable, enriched form of a question produced by the query processor.
type Query struct {
	// Raw is the text exactly as supplied.
	Raw string `json:"raw"`

	// Normalized is the case-folded, cleaned text sent to source adapters.
	Normalized string `json:"normalized"`

	// Keywords are the significant terms of the query, in order of appearance.
	Keywords []string `json:"keywords,omitempty"`

	// Intent is the detected intent.
	Intent Intent `json:"intent"`

	// Entities are extracted entities in order of appearance.
	Entities []Entity `json:"entities,omitempty"`

	// Caller identifies who asked.
	Caller CallerContext `json:"caller"`

	// Filters scope the query.
	Filters QueryFilters `json:"filters"`

	// Fingerprint is the deterministic cache key for this query.
	Fingerprint string `json:"fingerprint"`
}

// CanonicalText reduces normalized text to the form that identifies a question:
// tokens stripped of surrounding punctuation, joined by single spaces.
func CanonicalText(normalized string) string {
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		t := strings.Trim(f, "?!.-")
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return strings.Join(tokens, " ")
}

// Fingerprint computes the cache key for normalized text, filters and intent.
// It is pure: it reads nothing but its arguments.
func Fingerprint(normalized string, filters QueryFilters, intent Intent) string {
	sources := make([]string, len(filters.Sources))
	copy(sources, filters.Sources)
	sort.Strings(sources)

	h := sha256.New()
	h.Write([]byte(CanonicalText(normalized)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(sources, ",")))
	h.Write([]byte{0})
	h.Write([]byte(filters.PermissionScope))
	h.Write([]byte{0})
	h.Write([]byte(intent))
	return hex.EncodeToString(h.Sum(nil))
}

// EntityTexts returns the text of each entity.
func (q *Query) EntityTexts() []string {
	out := make([]string, len(q.Entities))
	for i, e := range q.Entities {
		out[i] = e.Text
	}
	return out
}
