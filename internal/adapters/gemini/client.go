// Package gemini implements the mood analyzer against Gemini's
// OpenAI-compatible chat completions endpoint.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/adapters/llmschema"
	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
	"github.com/ewilliams-labs/vibecheck/internal/core/ports"
)

const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = 0.7
)

var _ ports.MoodAnalyzer = (*Client)(nil)

// Config configures the client. Only APIKey is required.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Client sends one snapshot per call. It never retries.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewClient builds a client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: missing API key: %w", domain.ErrPermissionDenied)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	return &Client{
		api:         openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}, nil
}

// Analyze asks the model to read the mood in img and suggest a playlist.
func (c *Client) Analyze(ctx context.Context, img domain.CapturedImage) (domain.AnalysisResult, error) {
	payload, err := domain.InlinePayload(img.Base64())
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("gemini: %w", err)
	}

	schema := llmschema.Analysis()
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: domain.MoodInstruction},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:" + domain.MIMETypeJPEG + ";base64," + payload,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   llmschema.Name,
				Schema: &schema,
				Strict: true,
			},
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		mapped := classify(ctx, err)
		c.logger.Warn("analysis request failed", zap.String("model", c.model), zap.Error(err))
		return domain.AnalysisResult{}, mapped
	}

	if len(resp.Choices) == 0 {
		return domain.AnalysisResult{}, fmt.Errorf("gemini: no choices: %w", domain.ErrEmptyResponse)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return domain.AnalysisResult{}, fmt.Errorf("gemini: blank content: %w", domain.ErrEmptyResponse)
	}

	result, err := domain.DecodeAnalysis([]byte(content))
	if err != nil {
		c.logger.Debug("undecodable analysis reply", zap.Int("chars", len(content)), zap.Error(err))
		return domain.AnalysisResult{}, fmt.Errorf("gemini: %w", err)
	}
	c.logger.Debug("analysis complete",
		zap.String("emotion", result.DetectedEmotion),
		zap.Int("songs", len(result.Playlist)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return result, nil
}

// classify maps a transport failure to a domain error.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return fmt.Errorf("gemini: %w", ctx.Err())
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("gemini: status %d: %v: %w", status, err, domain.ErrPermissionDenied)
	case http.StatusTooManyRequests:
		return fmt.Errorf("gemini: status %d: %v: %w", status, err, domain.ErrRateLimited)
	default:
		return fmt.Errorf("gemini: request failed: %v: %w", err, domain.ErrNetwork)
	}
}
