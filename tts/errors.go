package tts

import (
	"errors"
	"fmt"
)

// Common errors for the synthesis core.
var (
	// Registry and activation errors
	ErrEngineNotFound     = errors.New("engine not found")
	ErrEngineNotAvailable = errors.New("engine backend is not installed")
	ErrModelNotLoaded     = errors.New("model not loaded")
	ErrLoadFailed         = errors.New("model load failed")
	ErrResourceBusy       = errors.New("device memory held by another owner")

	// Capability errors
	ErrUnsupportedOperation = errors.New("operation not supported by engine")

	// Generation errors
	ErrGenerationFailed    = errors.New("audio generation failed")
	ErrGenerationCancelled = errors.New("generation cancelled")

	// Request validation errors
	ErrEmptyText     = errors.New("text must not be empty")
	ErrTextTooLong   = errors.New("text exceeds maximum length")
	ErrInvalidSpeed  = errors.New("speed out of range")
	ErrInvalidTemp   = errors.New("temperature out of range")
	ErrInvalidFormat = errors.New("unsupported output format")
	ErrVoiceMismatch = errors.New("voice belongs to a different engine")

	// Prompt-voice errors
	ErrUnknownModel = errors.New("unknown model")
	ErrServiceBusy  = errors.New("another generation is in progress")
)

// EngineError wraps an error with the engine and operation that produced it.
type EngineError struct {
	Engine string // Engine name, e.g. "kokoro"
	Op     string // Operation, e.g. "load", "generate"
	Err    error  // The underlying error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Engine == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Engine, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates an error tagged with an engine name and operation.
func NewEngineError(engine, op string, err error) *EngineError {
	return &EngineError{Engine: engine, Op: op, Err: err}
}

// IsCancelled reports whether err is (or wraps) a cooperative cancellation.
// Cancellation is not a failure: callers should discard the request rather
// than report an error upward.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrGenerationCancelled)
}
