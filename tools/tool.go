package tools

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// ToolDefinition is the catalogue entry for one tool: name, human
// description, and the JSON schema of its input. It is static data; building
// it must have no side effects.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
}

// Tool is one retrieval capability: a stable definition plus an Execute that
// takes the raw JSON arguments the model produced.
//
// Execute reports hard failures (store unavailable, undecodable input) as a
// Go error; soft outcomes such as "no results" are ordinary text. The
// registry converts errors into a uniform textual failure result, so a tool
// may also choose to return failure text directly.
type Tool interface {
	Definition() ToolDefinition
	Execute(input json.RawMessage) (string, error)
}

// Source is a retrieval provenance record surfaced to the end user alongside
// the final answer.
type Source struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// SourceTracker is implemented by tools that record which documents their
// last execution drew from. Each execution overwrites the previous record.
type SourceTracker interface {
	LastSources() []Source
	ResetSources()
}

// GenerateSchema derives the Anthropic input schema from a Go struct type.
// Field tags: `json` for names, `jsonschema_description` for per-field docs.
func GenerateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
		Required:   schema.Required,
	}
}
