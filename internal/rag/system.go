// Package rag assembles the full pipeline: ingestion, store, tools,
// orchestration loop, and sessions.
package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/petasbytes/course-agent/internal/ingest"
	"github.com/petasbytes/course-agent/internal/session"
	"github.com/petasbytes/course-agent/internal/store"
	"github.com/petasbytes/course-agent/internal/telemetry"
	"github.com/petasbytes/course-agent/tools"
)

// Generator runs the tool-calling loop for one query. Satisfied by
// orchestrator.Orchestrator.
type Generator interface {
	Generate(ctx context.Context, query, history string, catalogue []tools.ToolDefinition, registry *tools.Registry) (string, error)
}

// System owns one registry/store pair. Queries against the same System must
// not be interleaved: the registry's clear -> dispatch -> collect window is
// serialized per query.
type System struct {
	store    *store.InMemoryStore
	registry *tools.Registry
	gen      Generator
	sessions *session.Manager
	chunker  ingest.Chunker
	logger   zerolog.Logger
}

// New wires the search and outline tools (in that order) over the store.
func New(st *store.InMemoryStore, gen Generator, sessions *session.Manager, chunker ingest.Chunker, logger zerolog.Logger) *System {
	return &System{
		store:    st,
		registry: tools.NewRegistry(tools.NewCourseSearchTool(st), tools.NewCourseOutlineTool(st)),
		gen:      gen,
		sessions: sessions,
		chunker:  chunker,
		logger:   logger,
	}
}

// Registry exposes the tool registry, mainly for tests and diagnostics.
func (s *System) Registry() *tools.Registry { return s.registry }

// CreateSession starts a new conversation session.
func (s *System) CreateSession() string { return s.sessions.Create() }

// Query answers one question: clears stale provenance, runs the loop with
// the session history, collects the sources produced by this query's tool
// executions, and records the exchange.
func (s *System) Query(ctx context.Context, query, sessionID string) (string, []tools.Source, error) {
	queryID := fmt.Sprintf("q-%d", time.Now().UnixNano())
	ctx = telemetry.WithQueryID(ctx, queryID)

	// Clear before dispatching so a previous query's sources can never leak
	// into this one, even if that query aborted mid-loop.
	s.registry.ResetSources()

	history := ""
	if s.sessions != nil && sessionID != "" {
		history = s.sessions.History(sessionID)
	}

	prompt := "Answer this question about course materials: " + query
	start := time.Now()
	answer, err := s.gen.Generate(ctx, prompt, history, s.registry.Definitions(), s.registry)
	if err != nil {
		return "", nil, fmt.Errorf("generate answer: %w", err)
	}

	sources := s.registry.Sources()
	if s.sessions != nil && sessionID != "" {
		s.sessions.AddExchange(sessionID, query, answer)
	}

	telemetry.Emit("query", map[string]any{
		"query_id":    queryID,
		"session_id":  sessionID,
		"duration_ms": time.Since(start).Milliseconds(),
		"sources":     len(sources),
	})
	s.logger.Info().
		Str("session_id", sessionID).
		Dur("duration", time.Since(start)).
		Int("sources", len(sources)).
		Msg("query answered")

	return answer, sources, nil
}

// Analytics returns the course count and titles for the stats endpoint.
func (s *System) Analytics() (int, []string) {
	return s.store.CourseCount(), s.store.CourseTitles()
}

// AddCourseFolder ingests every course script in the folder, skipping titles
// already indexed. Returns how many courses and chunks were added.
func (s *System) AddCourseFolder(path string) (int, int, error) {
	docs, err := ingest.LoadFolder(path)
	if err != nil {
		return 0, 0, err
	}
	courses, chunks := 0, 0
	for _, doc := range docs {
		if s.store.HasCourse(doc.Course.Title) {
			continue
		}
		s.store.AddCourse(doc.Course)
		cs := s.chunker.BuildChunks(doc)
		s.store.AddChunks(cs)
		courses++
		chunks += len(cs)
		s.logger.Info().Str("course", doc.Course.Title).Int("chunks", len(cs)).Msg("course indexed")
	}
	return courses, chunks, nil
}
