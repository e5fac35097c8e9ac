package llm

import (
	"context"
	"errors"

	"github.com/gaolin1/math-olympic-question-search/services/api/datatypes"
)

// ErrUnavailable marks transport-level failures reaching the backend.
// Handlers map it to 503 so callers can tell "model is down" from
// "model answered badly".
var ErrUnavailable = errors.New("llm backend unreachable")

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
	System      string   `json:"system,omitempty"`
}

// LLMClient defines the standard interface for any LLM backend.
//
// Generate takes one fully composed prompt; Chat takes the
// conversation as structured turns, which suits callers that keep
// rolling history like the websocket tutor. System instructions ride
// in params.System for Generate and as a leading system-role message
// for Chat.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)
}
