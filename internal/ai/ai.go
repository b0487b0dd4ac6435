// Package ai declares the reasoning and embedding service contracts.
package ai

import (
	"context"
	"errors"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
)

// Turn is one message sent to the reasoning service.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Request describes a single completion call.
type Request struct {
	Turns []Turn
	// Schema is a JSON schema hint for the expected answer. Callers still parse
	// and validate the output themselves.
	Schema    map[string]any
	MaxTokens int
}

// Reasoner returns the raw text of the first completion for a request.
type Reasoner interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// EmbedMode selects the embedding task flavour.
type EmbedMode string

const (
	EmbedQuery    EmbedMode = "query"
	EmbedDocument EmbedMode = "document"
)

// Embedder turns text into a fixed-width vector.
type Embedder interface {
	Embed(ctx context.Context, text string, mode EmbedMode) ([]float32, error)
}

// ErrEmptyResponse is returned when the reasoning service produced no text.
var ErrEmptyResponse = errors.New("reasoning service returned empty response")

// System builds a request from a system instruction and one user message.
func System(system, user string, maxTokens int) Request {
	turns := make([]Turn, 0, 2)
	if system != "" {
		turns = append(turns, Turn{Role: RoleSystem, Text: system})
	}
	turns = append(turns, Turn{Role: RoleUser, Text: user})
	return Request{Turns: turns, MaxTokens: maxTokens}
}

// WithSchema returns a copy of the request carrying the schema hint.
func (r Request) WithSchema(schema map[string]any) Request {
	r.Schema = schema
	return r
}
