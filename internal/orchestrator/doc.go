// Package orchestrator drives the bounded tool-calling loop against the
// Anthropic Messages API.
//
// Protocol:
//   - up to MaxRounds rounds may use tools; each round is one backend call
//     optionally followed by sequential tool dispatch;
//   - tool_use and the matching tool_result stay adjacent: the assistant
//     tool_use message is always followed by one user message bundling all
//     of that round's tool_results;
//   - any FailureMarker result ends tool rounds early;
//   - a mandatory tools-disabled finalization call guarantees the loop
//     terminates with text even if the model keeps asking for tools.
//
// Flow:
//
//	user(query) -> assistant(tool_use) -> user(tool_result) -> ... -> assistant(text)
package orchestrator
