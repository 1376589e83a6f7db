// Package api exposes the dataset pipeline over HTTP.
package api

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	runpipe "github.com/Caia-Tech/caia-datachef/internal/pipeline"
	"github.com/Caia-Tech/caia-datachef/pkg/conversation"
	"github.com/Caia-Tech/caia-datachef/pkg/logging"
)

// maxUploadSize bounds a single uploaded document.
const maxUploadSize = 50 * 1024 * 1024 // 50MB

var uploadTypes = map[string]bool{
	"txt":  true,
	"text": true,
	"md":   true,
	"html": true,
	"htm":  true,
	"pdf":  true,
	"docx": true,
	"doc":  true,
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	runner  *runpipe.Runner
	events  *runpipe.EventBus
	tempDir string
	logger  zerolog.Logger
}

// NewHandlers creates a new handlers instance. tempDir receives uploaded
// documents before extraction.
func NewHandlers(runner *runpipe.Runner, events *runpipe.EventBus, tempDir string) *Handlers {
	return &Handlers{
		runner:  runner,
		events:  events,
		tempDir: tempDir,
		logger:  logging.GetLogger("api"),
	}
}

// Health returns the service health status.
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"service":   "caia-datachef",
		"version":   "0.1.0",
		"timestamp": time.Now().UTC(),
	})
}

// ExpandRequest is the body of POST /api/v1/expand. Conversations arrive
// in the loose external shape (role and value key aliases allowed) and are
// normalized before expansion.
type ExpandRequest struct {
	Conversations [][]map[string]any `json:"conversations"`
	Factor        int                `json:"factor"`
}

// ExpandResponse reports the expanded batch with its counters.
type ExpandResponse struct {
	Expanded   conversation.Batch `json:"expanded"`
	Count      int                `json:"count"`
	Skipped    int                `json:"skipped"`
	DurationMS int64              `json:"duration_ms"`
}

// Expand paraphrases an existing batch of conversations.
func (h *Handlers) Expand(c *fiber.Ctx) error {
	var req ExpandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}

	if len(req.Conversations) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No conversations provided",
		})
	}
	if req.Factor < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Expansion factor must be >= 1, got %d", req.Factor),
		})
	}

	batch, report, err := h.runner.ExpandRawOnly(c.Context(), req.Conversations, req.Factor)
	if err != nil {
		h.logger.Error().Err(err).Msg("Expansion failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Expansion failed",
			"details": err.Error(),
		})
	}

	return c.JSON(ExpandResponse{
		Expanded:   batch,
		Count:      report.Expanded,
		Skipped:    report.Skipped,
		DurationMS: report.Duration.Milliseconds(),
	})
}

// CreateDataset runs the full pipeline over one uploaded document and
// saves the result in the requested formats.
//
// Multipart form fields:
//
//	file     the source document (txt, md, html, pdf, docx)
//	name     optional base name for output files
//	formats  optional comma-separated list, default "jsonl"
func (h *Handlers) CreateDataset(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "No file uploaded or invalid file format",
			"details": err.Error(),
		})
	}

	if file.Size > maxUploadSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large: %d bytes. Maximum size is %d bytes", file.Size, maxUploadSize),
		})
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Filename), "."))
	if !uploadTypes[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Unsupported file type: %q", ext),
		})
	}

	tempPath, err := h.saveUpload(c, file.Filename)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to save uploaded file")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to process uploaded file",
			"details": err.Error(),
		})
	}
	defer os.Remove(tempPath)

	baseName := c.FormValue("name")
	if baseName == "" {
		baseName = fmt.Sprintf("dataset-%s", uuid.New().String())
	}

	formats := strings.Split(c.FormValue("formats", "jsonl"), ",")
	for i := range formats {
		formats[i] = strings.TrimSpace(formats[i])
	}

	result, err := h.runner.Run(c.Context(), []string{tempPath}, baseName, formats)
	if err != nil {
		h.logger.Error().Err(err).Str("file", file.Filename).Msg("Dataset run failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Dataset run failed",
			"details": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// saveUpload copies an uploaded file into the temp dir under a unique name
// that keeps the original extension so format routing still works.
func (h *Handlers) saveUpload(c *fiber.Ctx, filename string) (string, error) {
	if err := os.MkdirAll(h.tempDir, 0755); err != nil {
		return "", err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return "", err
	}
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	tempPath := filepath.Join(h.tempDir, uuid.New().String()+filepath.Ext(filename))
	dst, err := os.Create(tempPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(tempPath)
		return "", err
	}
	return tempPath, nil
}

// EventStats reports event bus counters for monitoring.
func (h *Handlers) EventStats(c *fiber.Ctx) error {
	if h.events == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Event bus not enabled",
		})
	}
	return c.JSON(h.events.GetStats())
}
