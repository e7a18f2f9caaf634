package imagegen

import (
	"context"
	"fmt"
)

// Request describes one image to acquire for a stop.
type Request struct {
	// Prompt is the scene description handed to generative providers.
	Prompt string
	// Keywords are used by search-based fallbacks that cannot take a prompt.
	Keywords []string
	// Seed varies the output for multiple images of the same stop.
	Seed   int
	Width  int
	Height int
}

// Provider defines the interface for image acquisition engines.
type Provider interface {
	// Fetch acquires one image and writes it into destDir.
	// Returns the path of the written file.
	Fetch(ctx context.Context, req *Request, destDir string) (string, error)
}

// FatalError represents an image provider error that should disable the
// provider for the rest of the session. Examples: auth failures, missing keys.
type FatalError struct {
	StatusCode int
	Message    string
}

func (e *FatalError) Error() string {
	return e.Message
}

// NewFatalError creates a new FatalError with the given status code and message.
func NewFatalError(statusCode int, message string) *FatalError {
	return &FatalError{StatusCode: statusCode, Message: message}
}

// IsFatalError checks if an error should disable the provider for the session.
func IsFatalError(err error) bool {
	_, ok := err.(*FatalError)
	return ok
}

// ErrNoProviders is returned when every provider in the chain failed.
var ErrNoProviders = fmt.Errorf("all image providers exhausted")
