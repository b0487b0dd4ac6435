package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/logger"
)

const (
	provider              = "gemini"
	defaultModel          = "gemini-2.5-flash"
	defaultEmbeddingModel = "gemini-embedding-001"
	defaultMaxLogLength   = 200
	jsonMIMEType          = "application/json"
)

// models is the subset of genai.Models used by the client.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Config holds the Gemini client settings.
type Config struct {
	APIKey              string
	Model               string
	EmbeddingModel      string
	EmbeddingDimensions int
	// RequestsPerSecond paces outgoing calls. Zero disables pacing.
	RequestsPerSecond float64
	MaxLogLength      int
	// ThinkingBudget caps thinking tokens for requests with a token budget.
	// Zero disables thinking, a negative value keeps the model default.
	ThinkingBudget int
}

// Client implements ai.Reasoner and ai.Embedder on top of the Gemini API.
type Client struct {
	models         models
	model          string
	embeddingModel string
	dimensions     int
	limiter        *rate.Limiter
	maxLogLen      int
	thinkingBudget int
	logger         *zap.Logger
}

// New creates a new Client configured for the Gemini API backend.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newClient(client.Models, cfg, log), nil
}

func newClient(m models, cfg Config, log *zap.Logger) *Client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	embeddingModel := strings.TrimSpace(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		models:         m,
		model:          model,
		embeddingModel: embeddingModel,
		dimensions:     cfg.EmbeddingDimensions,
		limiter:        limiter,
		maxLogLen:      maxLogLen,
		thinkingBudget: cfg.ThinkingBudget,
		logger:         logger.WithCommonFields(log, provider, model),
	}
}

// Complete sends the turns to Gemini and returns the text of the first candidate.
func (c *Client) Complete(ctx context.Context, req ai.Request) (string, error) {
	if c == nil || c.models == nil {
		return "", errors.New("gemini client is not initialized")
	}

	system, contents := splitTurns(req.Turns)
	if len(contents) == 0 {
		return "", errors.New("request has no user turns")
	}

	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
		// Thinking tokens count against MaxOutputTokens.
		if c.thinkingBudget >= 0 {
			budget := int32(c.thinkingBudget)
			config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
		}
	}

	if len(req.Schema) > 0 {
		schema, err := json.Marshal(req.Schema)
		if err != nil {
			return "", fmt.Errorf("marshal response schema: %w", err)
		}
		system = strings.TrimSpace(system + "\n\nRespond with JSON only, matching this schema:\n" + string(schema))
		config.ResponseMIMEType = jsonMIMEType
	}

	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for rate limiter: %w", err)
	}

	c.logger.Debug("gemini generate content request",
		zap.Int("turns", len(contents)),
		zap.Int("system_length", utf8.RuneCountInString(system)),
		zap.String("prompt_preview", logger.Preview(lastText(contents), c.maxLogLen)),
	)

	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	output := firstCandidateText(resp)
	if output == "" {
		if reason := finishReason(resp); reason != "" {
			c.logger.Warn("gemini returned no text",
				zap.String("finish_reason", string(reason)),
				zap.Int("max_tokens", req.MaxTokens),
			)
		}
		return "", ai.ErrEmptyResponse
	}

	c.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", logger.Preview(output, c.maxLogLen)),
	)

	return output, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string, mode ai.EmbedMode) ([]float32, error) {
	if c == nil || c.models == nil {
		return nil, errors.New("gemini client is not initialized")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text to embed must not be empty")
	}

	config := &genai.EmbedContentConfig{TaskType: taskType(mode)}
	if c.dimensions > 0 {
		dims := int32(c.dimensions)
		config.OutputDimensionality = &dims
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	resp, err := c.models.EmbedContent(ctx, c.embeddingModel, genai.Text(text), config)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini api returned empty embedding")
	}

	return resp.Embeddings[0].Values, nil
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

func (c *Client) EmbeddingModel() string {
	if c == nil {
		return ""
	}
	return c.embeddingModel
}

func taskType(mode ai.EmbedMode) string {
	if mode == ai.EmbedDocument {
		return "RETRIEVAL_DOCUMENT"
	}
	return "RETRIEVAL_QUERY"
}

// splitTurns folds system turns into one instruction and maps the rest to contents.
func splitTurns(turns []ai.Turn) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(turns))

	for _, turn := range turns {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}

		switch turn.Role {
		case ai.RoleSystem:
			system = append(system, text)
		case ai.RoleModel:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}})
		}
	}

	return strings.Join(system, "\n\n"), contents
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}

		var builder strings.Builder
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}

		if output := strings.TrimSpace(builder.String()); output != "" {
			return output
		}
	}

	return ""
}

func finishReason(resp *genai.GenerateContentResponse) genai.FinishReason {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return ""
	}
	return resp.Candidates[0].FinishReason
}

func lastText(contents []*genai.Content) string {
	if len(contents) == 0 {
		return ""
	}
	last := contents[len(contents)-1]
	if last == nil || len(last.Parts) == 0 || last.Parts[0] == nil {
		return ""
	}
	return last.Parts[0].Text
}
