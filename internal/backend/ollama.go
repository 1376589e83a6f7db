package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Caia-Tech/caia-datachef/pkg/logging"
)

// OllamaConfig holds configuration for the Ollama adapter.
type OllamaConfig struct {
	// BaseURL is the Ollama API base URL. Uses the explicit IPv4 address
	// instead of localhost to avoid IPv6 resolution issues on Windows.
	BaseURL string `json:"base_url"`

	// Model to request completions from.
	Model string `json:"model"`

	// RequestTimeout bounds each individual completion call.
	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultOllamaConfig returns the default adapter configuration.
func DefaultOllamaConfig() *OllamaConfig {
	return &OllamaConfig{
		BaseURL:        "http://127.0.0.1:11434",
		Model:          "llama3",
		RequestTimeout: 60 * time.Second,
	}
}

// OllamaBackend implements ChatBackend against a local Ollama server using
// the non-streaming /api/chat endpoint.
type OllamaBackend struct {
	config     *OllamaConfig
	httpClient *http.Client
}

// NewOllamaBackend creates an Ollama adapter, filling defaults for any
// zero-valued config fields.
func NewOllamaBackend(config *OllamaConfig) *OllamaBackend {
	if config == nil {
		config = DefaultOllamaConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:11434"
	}
	if config.Model == "" {
		config.Model = "llama3"
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 60 * time.Second
	}

	return &OllamaBackend{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// Complete implements ChatBackend.
func (o *OllamaBackend) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", &BackendError{Kind: ErrKindInvalidResponse, Backend: "ollama", Message: "empty message sequence"}
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.config.RequestTimeout)
	defer cancel()

	body, err := json.Marshal(ollamaChatRequest{
		Model:    o.config.Model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", &BackendError{Kind: ErrKindInvalidResponse, Backend: "ollama", Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, o.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", &BackendError{Kind: ErrKindConnection, Backend: "ollama", Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", wrapErr("ollama", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Try to surface the server's error message
		var apiErr ollamaError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return "", &BackendError{Kind: ErrKindInvalidResponse, Backend: "ollama", Message: apiErr.Error}
		}
		return "", &BackendError{Kind: ErrKindInvalidResponse, Backend: "ollama", Message: "chat request failed: " + resp.Status}
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &BackendError{Kind: ErrKindInvalidResponse, Backend: "ollama", Message: "failed to decode response", Cause: err}
	}

	logger := logging.GetBackendLogger("ollama", o.config.Model)
	logger.Debug().
		Int("messages", len(messages)).
		Dur("latency", time.Since(start)).
		Msg("Completion received")

	return result.Message.Content, nil
}
