// Package pipeline publishes progress events as a dataset run moves through
// extraction, generation, expansion, and persistence.
package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a pipeline stage transition.
type EventType string

const (
	EventExtractionStarted   EventType = "extraction.started"
	EventExtractionCompleted EventType = "extraction.completed"
	EventGenerationStarted   EventType = "generation.started"
	EventGenerationCompleted EventType = "generation.completed"
	EventExpansionStarted    EventType = "expansion.started"
	EventExpansionCompleted  EventType = "expansion.completed"
	EventDatasetSaved        EventType = "dataset.saved"
	EventStageFailed         EventType = "stage.failed"
)

// Event is one progress notification from a dataset run.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// NewEvent creates an event for the given run.
func NewEvent(eventType EventType, runID string) *Event {
	return &Event{
		ID:        "evt_" + uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		RunID:     runID,
		Metadata:  make(map[string]any),
	}
}

// WithMetadata sets one metadata key and returns the event for chaining.
func (e *Event) WithMetadata(key string, value any) *Event {
	e.Metadata[key] = value
	return e
}
