// Package provider wires the Anthropic client.
package provider

import (
	"github.com/anthropics/anthropic-sdk-go"
)

// NewAnthropicClient returns a client using the API key from the env
// (ANTHROPIC_API_KEY, read by the SDK).
func NewAnthropicClient() *anthropic.Client {
	c := anthropic.NewClient()
	return &c
}

// DefaultModel is used when no model is configured.
const DefaultModel = anthropic.ModelClaude3_7SonnetLatest
