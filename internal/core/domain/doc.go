// Package domain defines the core business entities for navo.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Query: An enriched, fingerprinted question
//   - Candidate: A document fragment returned by a source adapter
//   - RankedResult: A candidate with a cross-source fused score
//   - ReasoningTrace: The auditable record of how an answer was reached
//   - CacheEntry: A cached answer keyed by query fingerprint
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
