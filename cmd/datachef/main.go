// Package main provides the datachef CLI: build and expand conversational
// training datasets from source documents.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Caia-Tech/caia-datachef/internal/backend"
	"github.com/Caia-Tech/caia-datachef/internal/dataset"
	"github.com/Caia-Tech/caia-datachef/internal/expansion"
	"github.com/Caia-Tech/caia-datachef/internal/generation"
	runpipe "github.com/Caia-Tech/caia-datachef/internal/pipeline"
	"github.com/Caia-Tech/caia-datachef/pkg/extractor"
	"github.com/Caia-Tech/caia-datachef/pkg/logging"
	"github.com/Caia-Tech/caia-datachef/pkg/pipeline"
)

const timeRound = 10 * time.Millisecond

func main() {
	if len(os.Args) < 2 {
		showHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCommand(os.Args[2:])
	case "expand":
		expandCommand(os.Args[2:])
	case "help", "-h", "--help":
		showHelp()
	default:
		fmt.Printf("❌ Unknown command: %s\n\n", os.Args[1])
		showHelp()
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Println(`datachef - build conversational training datasets from documents

Usage:
  datachef run [flags] <file>...     extract, generate, expand, and save
  datachef expand [flags] <file>     expand an existing JSONL dataset

Run flags:
  -output    output directory (default ./data/datasets)
  -name      base name for output files (default "dataset")
  -formats   comma-separated: jsonl,parquet,csv (default "jsonl")
  -factor    paraphrased variants per conversation (default 3)
  -turns     turns per generated conversation (default 3)
  -workers   concurrent backend calls (default 4)
  -hedging   confident|balanced|cautious (default "balanced")

Expand flags:
  -output, -name, -formats, -factor, -workers as above
  -static    comma-separated roles copied verbatim, e.g. "human"

Backend environment:
  DATACHEF_BACKEND   ollama|openai (default "ollama")
  DATACHEF_MODEL     model name (default "llama3")
  OLLAMA_BASE_URL    Ollama address (default "http://127.0.0.1:11434")
  OPENAI_API_KEY     required for the openai backend`)
}

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	output := fs.String("output", "./data/datasets", "output directory")
	name := fs.String("name", "dataset", "base name for output files")
	formats := fs.String("formats", "jsonl", "comma-separated output formats")
	factor := fs.Int("factor", 3, "paraphrased variants per conversation")
	turns := fs.Int("turns", 3, "turns per generated conversation")
	workers := fs.Int("workers", 4, "concurrent backend calls")
	hedging := fs.String("hedging", "balanced", "hedging level")
	fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Println("❌ Usage: datachef run [flags] <file>...")
		os.Exit(1)
	}

	cfg := configFromEnv()
	cfg.DataPaths.OutputDir = *output
	cfg.Expansion.Factor = *factor
	cfg.Expansion.Workers = *workers
	cfg.Generation.Turns = *turns
	cfg.Generation.HedgingLevel = *hedging

	runner, cleanup := buildRunner(cfg)
	defer cleanup()

	ctx := signalContext()

	fmt.Printf("🔄 Processing %d document(s)...\n", fs.NArg())
	result, err := runner.Run(ctx, fs.Args(), *name, splitList(*formats))
	if err != nil {
		fmt.Printf("❌ Run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ %d documents → %d seed conversations → %d expanded (%d skipped) in %s\n",
		result.Documents, result.Seed, result.Expanded, result.Skipped, result.Duration.Round(timeRound))
	for format, path := range result.Files {
		fmt.Printf("   %s: %s\n", format, path)
	}
}

func expandCommand(args []string) {
	fs := flag.NewFlagSet("expand", flag.ExitOnError)
	output := fs.String("output", "./data/datasets", "output directory")
	name := fs.String("name", "expanded", "base name for output files")
	formats := fs.String("formats", "jsonl", "comma-separated output formats")
	factor := fs.Int("factor", 3, "paraphrased variants per conversation")
	workers := fs.Int("workers", 4, "concurrent backend calls")
	static := fs.String("static", "", "comma-separated roles copied verbatim")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Println("❌ Usage: datachef expand [flags] <dataset.jsonl>")
		os.Exit(1)
	}

	cfg := configFromEnv()
	cfg.DataPaths.OutputDir = *output
	cfg.Expansion.Factor = *factor
	cfg.Expansion.Workers = *workers
	if *static != "" {
		cfg.Expansion.StaticFields = splitList(*static)
	}

	runner, cleanup := buildRunner(cfg)
	defer cleanup()

	ctx := signalContext()

	source, err := runner.Store().LoadJSONL(fs.Arg(0))
	if err != nil {
		fmt.Printf("❌ Failed to load dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("🔄 Expanding %d conversations ×%d...\n", len(source), *factor)
	expanded, report, err := runner.ExpandOnly(ctx, source, *factor)
	if err != nil {
		fmt.Printf("❌ Expansion failed: %v\n", err)
		os.Exit(1)
	}

	out, err := runner.Store().SaveAll(expanded, *name, splitList(*formats))
	if err != nil {
		fmt.Printf("❌ Failed to save dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Expanded %d conversations (%d skipped) in %s\n",
		report.Expanded, report.Skipped, report.Duration.Round(timeRound))
	for format, path := range out.Files {
		fmt.Printf("   %s: %s\n", format, path)
	}
}

func configFromEnv() *pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Backend.Kind = getEnv("DATACHEF_BACKEND", cfg.Backend.Kind)
	cfg.Backend.Model = getEnv("DATACHEF_MODEL", cfg.Backend.Model)
	cfg.Backend.BaseURL = getEnv("OLLAMA_BASE_URL", cfg.Backend.BaseURL)
	cfg.Backend.APIKey = os.Getenv("OPENAI_API_KEY")
	return cfg
}

// buildRunner wires the pipeline from config. The returned cleanup stops
// the event bus.
func buildRunner(cfg *pipeline.Config) (*runpipe.Runner, func()) {
	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.SetupLogger(cfg.Logging); err != nil {
		fmt.Printf("❌ Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	chat, err := buildBackend(cfg.Backend)
	if err != nil {
		fmt.Printf("❌ Failed to set up backend: %v\n", err)
		os.Exit(1)
	}

	store, err := dataset.NewStore(cfg.DataPaths.OutputDir)
	if err != nil {
		fmt.Printf("❌ Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	events := runpipe.NewEventBus(256, 2)
	attachProgressLogger(events)

	runner := runpipe.NewRunner(
		cfg,
		extractor.NewEngine(),
		generation.NewGenerator(chat),
		expansion.NewExpander(expansion.NewEngine(chat), cfg.Expansion.Workers),
		store,
		events,
	)
	return runner, events.Close
}

func buildBackend(cfg *pipeline.BackendConfig) (backend.ChatBackend, error) {
	switch cfg.Kind {
	case pipeline.BackendOpenAI:
		return backend.NewOpenAIBackend(&backend.OpenAIConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		}), nil
	case pipeline.BackendOllama:
		return backend.NewOllamaBackend(&backend.OllamaConfig{
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			RequestTimeout: cfg.RequestTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Kind)
	}
}

// attachProgressLogger mirrors pipeline events into the structured log.
func attachProgressLogger(events *runpipe.EventBus) {
	logger := logging.GetLogger("progress")
	allTypes := []runpipe.EventType{
		runpipe.EventExtractionStarted, runpipe.EventExtractionCompleted,
		runpipe.EventGenerationStarted, runpipe.EventGenerationCompleted,
		runpipe.EventExpansionStarted, runpipe.EventExpansionCompleted,
		runpipe.EventDatasetSaved, runpipe.EventStageFailed,
	}
	_, _ = events.Subscribe(allTypes, func(_ context.Context, event *runpipe.Event) error {
		logger.Info().
			Str("type", string(event.Type)).
			Str("run_id", event.RunID).
			Interface("metadata", event.Metadata).
			Msg("Pipeline progress")
		return nil
	}, 64)
}

func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		fmt.Println("\n⚠️  Interrupted, finishing in-flight work...")
		cancel()
	}()
	return ctx
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
