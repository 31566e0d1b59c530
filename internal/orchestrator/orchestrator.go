package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"

	"github.com/petasbytes/course-agent/internal/telemetry"
	"github.com/petasbytes/course-agent/tools"
)

// DefaultMaxRounds is the round budget: how many backend calls may offer the
// tool catalogue before the tools-disabled finalization call.
const DefaultMaxRounds = 2

// DefaultMaxTokens bounds the length of each backend completion.
const DefaultMaxTokens = 800

// Config holds the fixed sampling parameters of the loop. Temperature is
// always 0 for determinism and is not configurable.
type Config struct {
	Model     anthropic.Model
	MaxTokens int64
	MaxRounds int
}

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	return c
}

// Orchestrator owns no conversation state between calls: every Generate
// builds a fresh conversation, runs it to completion, and discards it.
type Orchestrator struct {
	client *anthropic.Client
	cfg    Config
	logger zerolog.Logger
}

func New(client *anthropic.Client, cfg Config, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{client: client, cfg: cfg.withDefaults(), logger: logger}
}

// Generate answers one query, driving up to MaxRounds tool rounds followed
// by a tools-disabled finalization call.
//
// catalogue is the tool list offered to the model; registry executes the
// requested tools. Passing a catalogue with a nil registry models "tools
// declared but no executor bound": a tool-use response then degrades to its
// best-effort text. Backend transport errors propagate unretried; tool
// failures never do — they come back to the model as FailureMarker results
// and end tool rounds early.
func (o *Orchestrator) Generate(ctx context.Context, query, history string, catalogue []tools.ToolDefinition, registry *tools.Registry) (string, error) {
	system := buildSystemContent(history)
	conv := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
	}

	for round := 0; round < o.cfg.MaxRounds; round++ {
		out, err := o.runRound(ctx, conv, system, catalogue)
		if err != nil {
			return "", err
		}
		o.emitRound(ctx, round, out)

		// Ordinary completion, or tools requested with nothing to run them:
		// return the best-effort text (possibly empty) without finalizing.
		if out.kind == outcomeFinal || registry == nil {
			return out.text, nil
		}

		conv = append(conv, out.message.ToParam())
		results, failed := o.dispatchAll(ctx, registry, out.requests)
		conv = append(conv, anthropic.NewUserMessage(results...))

		// A failed tool would only fail again; stop burning rounds on it.
		if failed {
			break
		}
	}

	return o.finalize(ctx, conv, system)
}

// runRound performs one stateless exchange with the backend. The catalogue
// is attached only when non-empty, with automatic tool selection; the model
// is never forced to use a tool.
func (o *Orchestrator) runRound(ctx context.Context, conv []anthropic.MessageParam, system string, catalogue []tools.ToolDefinition) (roundOutcome, error) {
	params := anthropic.MessageNewParams{
		Model:       o.cfg.Model,
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    conv,
	}
	if len(catalogue) > 0 {
		params.Tools = toolUnionParams(catalogue)
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	msg, err := o.client.Messages.New(ctx, params)
	if err != nil {
		return roundOutcome{}, err
	}
	return outcomeFromMessage(msg), nil
}

// dispatchAll executes every requested tool sequentially, in request order,
// and returns the tool_result blocks for the single bundled user message.
// failed reports whether any result carries the failure marker.
func (o *Orchestrator) dispatchAll(ctx context.Context, registry *tools.Registry, requests []ToolRequest) ([]anthropic.ContentBlockParamUnion, bool) {
	results := make([]anthropic.ContentBlockParamUnion, 0, len(requests))
	failed := false

	for _, req := range requests {
		start := time.Now()
		text, err := registry.Dispatch(req.Name, req.Input)
		if err != nil {
			// Unknown tool: a contract violation, since names come from the
			// catalogue we offered. Keep the loop total by folding it into
			// the uniform failure shape.
			o.logger.Error().Str("tool", req.Name).Err(err).Msg("dispatch contract violation")
			text = tools.FailureMarker + err.Error()
		}
		isFailure := strings.HasPrefix(text, tools.FailureMarker)
		failed = failed || isFailure

		queryID, _ := telemetry.QueryIDFromContext(ctx)
		telemetry.Emit("tool_exec", map[string]any{
			"query_id":    queryID,
			"tool_name":   req.Name,
			"duration_ms": time.Since(start).Milliseconds(),
			"input_size":  len(req.Input),
			"output_size": len(text),
			"failed":      isFailure,
		})

		results = append(results, anthropic.NewToolResultBlock(req.ID, text, isFailure))
	}
	return results, failed
}

// finalize issues the mandatory concluding call with tools disabled and
// returns whatever text is present — empty string if the model produced
// none. This call always happens after tool rounds, budget-exhausted or
// failure-terminated alike.
func (o *Orchestrator) finalize(ctx context.Context, conv []anthropic.MessageParam, system string) (string, error) {
	out, err := o.runRound(ctx, conv, system, nil)
	if err != nil {
		return "", err
	}
	o.emitRound(ctx, -1, out)
	return out.text, nil
}

func (o *Orchestrator) emitRound(ctx context.Context, round int, out roundOutcome) {
	queryID, _ := telemetry.QueryIDFromContext(ctx)
	stop := ""
	if out.message != nil {
		stop = string(out.message.StopReason)
	}
	telemetry.Emit("round", map[string]any{
		"query_id":      queryID,
		"round":         round, // -1 marks the finalization call
		"stop_reason":   stop,
		"tool_requests": len(out.requests),
	})
	o.logger.Debug().
		Int("round", round).
		Str("stop_reason", stop).
		Int("tool_requests", len(out.requests)).
		Msg("round complete")
}

func toolUnionParams(catalogue []tools.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(catalogue))
	for _, d := range catalogue {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: d.InputSchema,
		}})
	}
	return out
}
