package backend

import (
	"context"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Caia-Tech/caia-datachef/pkg/logging"
)

// OpenAIConfig holds configuration for the OpenAI adapter.
type OpenAIConfig struct {
	APIKey         string        `json:"-"`
	Model          string        `json:"model"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultOpenAIConfig returns the default adapter configuration. The API
// key is expected from OPENAI_API_KEY when left empty.
func DefaultOpenAIConfig() *OpenAIConfig {
	return &OpenAIConfig{
		Model:          "gpt-4o-mini",
		RequestTimeout: 60 * time.Second,
	}
}

// OpenAIBackend implements ChatBackend against the OpenAI chat completions
// API.
type OpenAIBackend struct {
	client openai.Client
	config *OpenAIConfig
}

// NewOpenAIBackend creates an OpenAI adapter.
func NewOpenAIBackend(config *OpenAIConfig) *OpenAIBackend {
	if config == nil {
		config = DefaultOpenAIConfig()
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 60 * time.Second
	}

	opts := []option.RequestOption{}
	if config.APIKey != "" {
		opts = append(opts, option.WithAPIKey(config.APIKey))
	}

	return &OpenAIBackend{
		client: openai.NewClient(opts...),
		config: config,
	}
}

// Complete implements ChatBackend.
func (o *OpenAIBackend) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", &BackendError{Kind: ErrKindInvalidResponse, Backend: "openai", Message: "empty message sequence"}
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.config.RequestTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.config.Model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(reqCtx, params)
	if err != nil {
		return "", wrapErr("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", &BackendError{Kind: ErrKindInvalidResponse, Backend: "openai", Message: "no choices in response"}
	}

	logger := logging.GetBackendLogger("openai", o.config.Model)
	logger.Debug().
		Int("messages", len(messages)).
		Dur("latency", time.Since(start)).
		Msg("Completion received")

	return resp.Choices[0].Message.Content, nil
}
