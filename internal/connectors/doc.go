// Package connectors builds source adapters from configuration.
//
// Each subpackage implements driven.SourceAdapter for one source type and
// answers queries live against that source. The Factory maps a source's
// type to the builder for its adapter.
package connectors
