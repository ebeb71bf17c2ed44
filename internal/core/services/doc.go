// Package services implements the query orchestration core.
//
// Services depend only on domain and the port interfaces. The pipeline for
// one question is:
//
//	QueryProcessor → IdentityProvider → CacheManager.Lookup
//	  → [miss] Orchestrator → PermissionFilter → ReasoningEngine → CacheManager.Store
//
// AnswerService composes the stages and implements driving.AnswerService.
package services
