package llm

import (
	"context"
	"errors"
	"fmt"
)

// Chat roles understood by the generation backends.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn sent to the generation backend.
type Message struct {
	Role    string
	Content string
}

// Options carries per-call sampling overrides (temperature, top_p, num_ctx,
// num_predict, ...). Keys not present fall back to the backend defaults.
type Options map[string]any

// Generator is the single capability the interview services need from a
// text-generation backend.
type Generator interface {
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)
}

// GenerationError marks a backend that was unreachable or returned an
// unusable reply. Callers recover by terminating the session or degrading to
// a zero-score evaluation; it is never fatal to the process.
type GenerationError struct {
	Backend string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation: %v", e.Backend, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGenerationError reports whether err wraps a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
