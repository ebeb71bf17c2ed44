package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// PrincipalEveryone is granted to every caller. Sources tag public documents with it.
const PrincipalEveryone = "everyone"

// PermissionSet is the set of principals and roles a caller holds.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from principals, ignoring blanks.
func NewPermissionSet(principals ...string) PermissionSet {
	set := make(PermissionSet, len(principals))
	for _, p := range principals {
		p = strings.TrimSpace(p)
		if p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

// Has returns true if the principal is in the set.
func (s PermissionSet) Has(principal string) bool {
	_, ok := s[principal]
	return ok
}

// Intersects returns true if any of the descriptor's principals is in the set.
// An empty descriptor never intersects.
func (s PermissionSet) Intersects(descriptor []string) bool {
	for _, p := range descriptor {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// Sorted returns the principals in lexical order.
func (s PermissionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Scope returns a stable digest of the set, used to partition cache entries.
func (s PermissionSet) Scope() string {
	sum := sha256.Sum256([]byte(strings.Join(s.Sorted(), "\n")))
	return hex.EncodeToString(sum[:8])
}
