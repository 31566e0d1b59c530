// Command server runs the HTTP API for the course assistant.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"

	"github.com/petasbytes/course-agent/internal/api"
	"github.com/petasbytes/course-agent/internal/config"
	"github.com/petasbytes/course-agent/internal/ingest"
	"github.com/petasbytes/course-agent/internal/orchestrator"
	"github.com/petasbytes/course-agent/internal/provider"
	"github.com/petasbytes/course-agent/internal/rag"
	"github.com/petasbytes/course-agent/internal/session"
	"github.com/petasbytes/course-agent/internal/store"
)

func main() {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Missing ANTHROPIC_API_KEY; export it before running.")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	st := store.NewInMemoryStore(cfg.MaxResults)
	orch := orchestrator.New(provider.NewAnthropicClient(), orchestrator.Config{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: int64(cfg.MaxTokens),
		MaxRounds: cfg.MaxRounds,
	}, logger.With().Str("component", "orchestrator").Logger())
	sessions := session.NewManager(cfg.MaxHistory, cfg.SessionsPath, logger.With().Str("component", "session").Logger())
	chunker := ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	system := rag.New(st, orch, sessions, chunker, logger.With().Str("component", "rag").Logger())

	if courses, chunks, err := system.AddCourseFolder(cfg.DocsPath); err != nil {
		logger.Warn().Err(err).Str("path", cfg.DocsPath).Msg("could not load course documents")
	} else {
		logger.Info().Int("courses", courses).Int("chunks", chunks).Msg("course documents indexed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(system, logger.With().Str("component", "api").Logger())
	if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}
