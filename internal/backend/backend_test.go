package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: Message{Role: "assistant", Content: "Attention weighs token relevance."},
			Done:    true,
		})
	}))
	defer server.Close()

	be := NewOllamaBackend(&OllamaConfig{BaseURL: server.URL, Model: "llama3"})
	text, err := be.Complete(context.Background(), []Message{
		{Role: "system", Content: "You are a paraphrasing assistant."},
		{Role: "user", Content: "Rephrase this."},
	})
	require.NoError(t, err)
	assert.Equal(t, "Attention weighs token relevance.", text)
}

func TestOllamaCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ollamaError{Error: "model exploded"})
	}))
	defer server.Close()

	be := NewOllamaBackend(&OllamaConfig{BaseURL: server.URL})
	_, err := be.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, ErrKindInvalidResponse, backendErr.Kind)
	assert.Contains(t, backendErr.Message, "model exploded")
}

func TestOllamaCompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	be := NewOllamaBackend(&OllamaConfig{BaseURL: server.URL, RequestTimeout: 20 * time.Millisecond})
	_, err := be.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
}

func TestOllamaCompleteEmptyMessages(t *testing.T) {
	be := NewOllamaBackend(nil)
	_, err := be.Complete(context.Background(), nil)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, ErrKindInvalidResponse, backendErr.Kind)
}

func TestBackendErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := wrapErr("ollama", cause)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, ErrKindConnection, backendErr.Kind)
	assert.ErrorIs(t, err, cause)
}

func TestIsTimeout(t *testing.T) {
	timeout := wrapErr("ollama", context.DeadlineExceeded)
	assert.True(t, IsTimeout(timeout))

	plain := wrapErr("ollama", errors.New("refused"))
	assert.False(t, IsTimeout(plain))
	assert.False(t, IsTimeout(nil))
}
