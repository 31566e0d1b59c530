// Command agent is the interactive terminal client: ask questions about the
// indexed course materials, get answers with source attributions.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"

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
		fmt.Println("Missing ANTHROPIC_API_KEY; export it before running.")
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
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	system := buildSystem(cfg, logger)
	if courses, chunks, err := system.AddCourseFolder(cfg.DocsPath); err != nil {
		logger.Warn().Err(err).Str("path", cfg.DocsPath).Msg("could not load course documents")
	} else {
		fmt.Printf("Indexed %d course(s), %d chunk(s) from %s\n", courses, chunks, cfg.DocsPath)
	}

	// Graceful shutdown on Ctrl-C (SIGINT) / SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		<-sigch
		fmt.Println("\nExiting...")
		cancel()
	}()

	sessionID := system.CreateSession()
	fmt.Println("Ask about the course materials (Ctrl-C to quit)")

	// stdin reader goroutine -> lines into channel
	scanner := bufio.NewScanner(os.Stdin)
	inputCh := make(chan string)
	go func() {
		for scanner.Scan() {
			inputCh <- scanner.Text()
		}
		close(inputCh)
	}()

outer:
	for {
		fmt.Print("\u001b[94mYou\u001b[0m: ")
		var (
			query string
			ok    bool
		)
		select {
		case <-ctx.Done():
			break outer
		case query, ok = <-inputCh:
			if !ok {
				break outer
			}
		}
		if strings.TrimSpace(query) == "" {
			continue
		}

		answer, sources, err := system.Query(ctx, query, sessionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("\u001b[93mAssistant\u001b[0m: %s\n", answer)
		for _, src := range sources {
			if src.URL != "" {
				fmt.Printf("  source: %s (%s)\n", src.Text, src.URL)
			} else {
				fmt.Printf("  source: %s\n", src.Text)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: stdin read error: %v\n", err)
	}
}

func buildSystem(cfg *config.Config, logger zerolog.Logger) *rag.System {
	st := store.NewInMemoryStore(cfg.MaxResults)
	orch := orchestrator.New(provider.NewAnthropicClient(), orchestrator.Config{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: int64(cfg.MaxTokens),
		MaxRounds: cfg.MaxRounds,
	}, logger.With().Str("component", "orchestrator").Logger())
	sessions := session.NewManager(cfg.MaxHistory, cfg.SessionsPath, logger.With().Str("component", "session").Logger())
	chunker := ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	return rag.New(st, orch, sessions, chunker, logger.With().Str("component", "rag").Logger())
}
