// Package ollama provides a mood analyzer backed by a local Ollama vision
// model. The snapshot travels as a base64 image on a single chat message and
// the reply is constrained to the analysis schema through the format field.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/adapters/llmschema"
	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
	"github.com/ewilliams-labs/vibecheck/internal/core/ports"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llava"
)

var _ ports.MoodAnalyzer = (*Client)(nil)

// Client talks to the Ollama chat API.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      *zap.Logger
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string          `json:"model"`
	Messages []chatMessage   `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   json.RawMessage `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// Option customizes a Client.
type Option func(*Client)

// WithModel selects the vision model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the HTTP client. Deadlines normally come from the
// caller's context.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL:     baseURL,
		model:       defaultModel,
		temperature: 0.7,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Analyze(ctx context.Context, img domain.CapturedImage) (domain.AnalysisResult, error) {
	payload, err := domain.InlinePayload(img.Base64())
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("ollama: %w", err)
	}

	schema := llmschema.Analysis()
	format, err := json.Marshal(&schema)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("ollama: marshal schema: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model:  c.model,
		Stream: false,
		Format: format,
		Messages: []chatMessage{
			{Role: "user", Content: domain.MoodInstruction, Images: []string{payload}},
		},
		Options: map[string]any{"temperature": c.temperature},
	})
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return domain.AnalysisResult{}, fmt.Errorf("ollama: %w", ctx.Err())
		}
		c.logger.Warn("ollama request failed", zap.String("model", c.model), zap.Error(err))
		return domain.AnalysisResult{}, fmt.Errorf("ollama: request failed: %v: %w", err, domain.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("ollama returned error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return domain.AnalysisResult{}, statusError(resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("ollama: decode response: %v: %w", err, domain.ErrMalformedResponse)
	}
	if parsed.Error != "" {
		return domain.AnalysisResult{}, fmt.Errorf("ollama: %s: %w", parsed.Error, domain.ErrNetwork)
	}
	if strings.TrimSpace(parsed.Message.Content) == "" {
		return domain.AnalysisResult{}, fmt.Errorf("ollama: %w", domain.ErrEmptyResponse)
	}

	result, err := domain.DecodeAnalysis([]byte(parsed.Message.Content))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("ollama: %w", err)
	}
	return result, nil
}

func statusError(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("ollama: unexpected status %d: %w", status, domain.ErrPermissionDenied)
	case http.StatusTooManyRequests:
		return fmt.Errorf("ollama: unexpected status %d: %w", status, domain.ErrRateLimited)
	default:
		return fmt.Errorf("ollama: unexpected status %d: %w", status, domain.ErrNetwork)
	}
}
