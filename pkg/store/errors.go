package store

import (
	"errors"
	"fmt"
)

// Capabilities named in surfaced errors
const (
	CapabilityRouter    = "intent_router"
	CapabilityGenerator = "text_generator"
	CapabilityRenderer  = "document_renderer"
	CapabilityPublisher = "wiki_publisher"
	CapabilityTemplates = "template_set"
)

var (
	ErrTurnTimeout     = errors.New("turn timed out")
	ErrSessionBusy     = errors.New("session is busy")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrSessionNotFound = errors.New("session not found")
)

// ClassificationError is recovered inside the router and never surfaced
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string { return "classification failed: " + e.Err.Error() }
func (e *ClassificationError) Unwrap() error { return e.Err }

// GenerationError wraps a text generator failure for one turn. The session
// state is left untouched so the turn can be retried.
type GenerationError struct {
	SessionID string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("session %s: %s failed: %v", e.SessionID, CapabilityGenerator, e.Err)
}
func (e *GenerationError) Unwrap() error { return e.Err }

// RenderError means the document was not produced; DocumentReady stays false
type RenderError struct {
	SessionID string
	Err       error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("session %s: %s failed: %v", e.SessionID, CapabilityRenderer, e.Err)
}
func (e *RenderError) Unwrap() error { return e.Err }

// PublishError is logged and swallowed by the completion step
type PublishError struct {
	SessionID string
	Err       error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("session %s: %s failed: %v", e.SessionID, CapabilityPublisher, e.Err)
}
func (e *PublishError) Unwrap() error { return e.Err }

// ConfigurationError is fatal for the turn and needs operator action
type ConfigurationError struct {
	SessionID string
	DocType   DocumentType
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("session %s: %s misconfigured for %q: %s", e.SessionID, CapabilityTemplates, e.DocType, e.Reason)
}

// IsRetryable reports whether the caller may resubmit the same turn
func IsRetryable(err error) bool {
	var gen *GenerationError
	var ren *RenderError
	return errors.As(err, &gen) || errors.As(err, &ren) ||
		errors.Is(err, ErrTurnTimeout) || errors.Is(err, ErrSessionBusy)
}
