package embedding

import (
	"fmt"

	"vecbench/internal/domain"
)

// ModelSpec pins the embedding model identity for a run. Every record in
// a batch must carry vectors of exactly Dimension entries.
type ModelSpec struct {
	Name           string
	Dimension      int
	MaxInputTokens int
}

// Validate checks the model settings before any work starts.
func (s ModelSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: model name is empty", domain.ErrInvalidConfig)
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("%w: model dimension %d must be positive", domain.ErrInvalidConfig, s.Dimension)
	}
	if s.MaxInputTokens <= 0 {
		return fmt.Errorf("%w: model max input tokens %d must be positive", domain.ErrInvalidConfig, s.MaxInputTokens)
	}
	return nil
}

// charsPerToken is a coarse character budget per token, used to truncate
// over-long inputs without a tokenizer dependency.
const charsPerToken = 4

// Truncate cuts text to the model's input budget. Returns the possibly
// shortened text and whether anything was dropped. Truncation is by
// character count so it is deterministic across runs.
func (s ModelSpec) Truncate(text string) (string, bool) {
	limit := s.MaxInputTokens * charsPerToken
	if len(text) <= limit {
		return text, false
	}
	return text[:limit], true
}
