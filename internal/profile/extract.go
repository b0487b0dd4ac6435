package profile

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/ai/llmjson"
)

//go:embed extract.md
var extractPrompt string

// ExtractMaxTokens bounds the profile extraction answer.
const ExtractMaxTokens = 8000

var (
	// ErrEmptyTranscript is returned when there is nothing to extract from.
	ErrEmptyTranscript = errors.New("interview transcript is empty")
	ErrNoReasoner      = errors.New("no reasoning service to extract the profile")
)

// Extract builds a profile from an interview transcript with one reasoning call.
// Unlike other model answers, an unparseable profile is an error.
func Extract(ctx context.Context, reasoner ai.Reasoner, transcript []ai.Turn) (*Profile, error) {
	if len(transcript) == 0 {
		return nil, ErrEmptyTranscript
	}
	if reasoner == nil {
		return nil, ErrNoReasoner
	}

	turns := make([]ai.Turn, 0, len(transcript)+1)
	turns = append(turns, ai.Turn{Role: ai.RoleSystem, Text: extractPrompt})
	turns = append(turns, transcript...)

	raw, err := reasoner.Complete(ctx, ai.Request{
		Turns:     turns,
		Schema:    Schema(),
		MaxTokens: ExtractMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("extract profile: %w", err)
	}

	parsed := llmjson.Parse[map[string]any](raw, nil)
	if !parsed.OK {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, parsed.Err)
	}

	return Decode(parsed.Value)
}
