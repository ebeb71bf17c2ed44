// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - SourceAdapter: Searches one knowledge repository
//   - IdentityProvider: Resolves a caller's permission set
//   - CacheTier: One level of the answer cache (at least the in-process tier)
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - CompletionService: Natural-language synthesis for the prescriptive pass.
//     Without it, the pass uses a templated rationale.
//   - EntityExtractor: Without it, queries carry no entities.
//   - TraceStore: Without it, traces are returned but not kept for audit.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
