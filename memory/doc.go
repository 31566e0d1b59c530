// Package memory provides minimal session persistence.
//
// Persistence model:
//   - Only (query, answer) exchange pairs are stored per session id.
//   - Orchestration state (tool blocks, conversations) is transient by
//     design and never persisted.
package memory
