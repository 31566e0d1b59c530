package orchestrator

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
)

// ToolRequest is one tool invocation asked for by the model. Immutable once
// extracted from a backend response.
type ToolRequest struct {
	ID    string
	Name  string
	Input json.RawMessage
}

type outcomeKind int

const (
	outcomeFinal outcomeKind = iota
	outcomeToolUse
)

// roundOutcome is the result of one backend call: either final text or a
// list of tool requests. message retains the full assistant turn so it can
// be appended to the conversation verbatim.
type roundOutcome struct {
	kind     outcomeKind
	text     string
	requests []ToolRequest
	message  *anthropic.Message
}

// outcomeFromMessage classifies a backend response.
//
// The outcome is tool-use only when the stop reason says so AND at least one
// tool_use block is extractable; a tool-use stop with no extractable request
// (malformed output) degrades to final text — whatever text block is
// present, or empty. Never an error.
func outcomeFromMessage(msg *anthropic.Message) roundOutcome {
	var text string
	var requests []ToolRequest
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			if text == "" {
				text = v.Text
			}
		case anthropic.ToolUseBlock:
			requests = append(requests, ToolRequest{
				ID:    v.ID,
				Name:  v.Name,
				Input: json.RawMessage(v.JSON.Input.Raw()),
			})
		}
	}

	if msg.StopReason == anthropic.StopReasonToolUse && len(requests) > 0 {
		return roundOutcome{kind: outcomeToolUse, text: text, requests: requests, message: msg}
	}
	return roundOutcome{kind: outcomeFinal, text: text, message: msg}
}
