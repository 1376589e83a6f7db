// Package backend provides chat completion adapters for the text-generation
// services that paraphrasing and conversation generation call into. The
// adapters perform no retries; retry and fallback policy belongs to callers.
package backend

import (
	"context"
	"errors"
)

// Message is one role-tagged message in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatBackend sends an ordered message sequence to a text-generation
// service and returns a single text completion. Implementations must be
// safe for concurrent use.
type ChatBackend interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ErrorKind categorizes backend failures.
type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	ErrKindConnection
	ErrKindTimeout
	ErrKindInvalidResponse
)

// BackendError wraps any failure from a chat backend call. Callers recover
// from it via the paraphrase engine's degrade-gracefully fallback; it is
// never fatal to a batch.
type BackendError struct {
	Kind    ErrorKind
	Backend string
	Message string
	Cause   error
}

func (e *BackendError) Error() string {
	msg := e.Backend + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// IsTimeout reports whether the error is a backend timeout. Timeouts are
// handled identically to any other backend failure, this exists for
// logging and metrics only.
func IsTimeout(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind == ErrKindTimeout
	}
	return false
}

func wrapErr(backend string, err error) error {
	if err == nil {
		return nil
	}
	kind := ErrKindConnection
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ErrKindTimeout
	}
	return &BackendError{Kind: kind, Backend: backend, Message: "request failed", Cause: err}
}
