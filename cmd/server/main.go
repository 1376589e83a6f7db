// Package main provides the entry point for the datachef API server.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Caia-Tech/caia-datachef/internal/api"
	"github.com/Caia-Tech/caia-datachef/internal/backend"
	"github.com/Caia-Tech/caia-datachef/internal/dataset"
	"github.com/Caia-Tech/caia-datachef/internal/expansion"
	"github.com/Caia-Tech/caia-datachef/internal/generation"
	runpipe "github.com/Caia-Tech/caia-datachef/internal/pipeline"
	"github.com/Caia-Tech/caia-datachef/pkg/extractor"
	"github.com/Caia-Tech/caia-datachef/pkg/logging"
	"github.com/Caia-Tech/caia-datachef/pkg/pipeline"
)

func main() {
	cfg := pipeline.DefaultConfig()
	cfg.Backend.Kind = getEnv("DATACHEF_BACKEND", cfg.Backend.Kind)
	cfg.Backend.Model = getEnv("DATACHEF_MODEL", cfg.Backend.Model)
	cfg.Backend.BaseURL = getEnv("OLLAMA_BASE_URL", cfg.Backend.BaseURL)
	cfg.Backend.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.DataPaths.OutputDir = getEnv("DATACHEF_OUTPUT_DIR", cfg.DataPaths.OutputDir)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := logging.SetupLogger(cfg.Logging); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	chat, err := buildBackend(cfg.Backend)
	if err != nil {
		log.Fatalf("Failed to set up backend: %v", err)
	}

	store, err := dataset.NewStore(cfg.DataPaths.OutputDir)
	if err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	events := runpipe.NewEventBus(256, 2)
	defer events.Close()

	runner := runpipe.NewRunner(
		cfg,
		extractor.NewEngine(),
		generation.NewGenerator(chat),
		expansion.NewExpander(expansion.NewEngine(chat), cfg.Expansion.Workers),
		store,
		events,
	)

	app := fiber.New(fiber.Config{
		AppName:   "caia-datachef API",
		BodyLimit: int(cfg.Server.MaxRequestSize),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "UTC",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: getEnv("CORS_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	api.RegisterRoutes(app, api.NewHandlers(runner, events, cfg.DataPaths.TempDir))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	port := getEnv("PORT", fmt.Sprintf("%d", cfg.Server.Port))
	log.Printf("Starting caia-datachef server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
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

// getEnv retrieves an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
