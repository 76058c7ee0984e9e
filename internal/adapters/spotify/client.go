// Package spotify finds album art for suggested songs through the Spotify
// Web API search endpoint.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ewilliams-labs/vibecheck/internal/core/ports"
)

const (
	DefaultBaseURL  = "https://api.spotify.com/v1"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
)

// Client is an HTTP client for the Spotify adapter.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxRetries  int
	baseBackoff time.Duration
	artwork     *cache.Cache
	logger      *zap.Logger
}

// compile-time interface assertion
var _ ports.ArtworkFinder = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithRetry overrides the retry budget and base backoff.
func WithRetry(maxRetries int, baseBackoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseBackoff = baseBackoff
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCacheTTL sets how long artwork lookups are remembered.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.artwork = cache.New(ttl, 2*ttl)
	}
}

// NewClient constructs a new Spotify client. httpClient must attach
// credentials; see NewClientCredentials.
func NewClient(httpClient *http.Client, baseURL string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxRetries, backoff := getRetryConfig()
	c := &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxRetries:  maxRetries,
		baseBackoff: backoff,
		artwork:     cache.New(6*time.Hour, 12*time.Hour),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientCredentials builds a client that authenticates with the app's
// client id and secret. Tokens are fetched and refreshed lazily.
func NewClientCredentials(ctx context.Context, clientID, clientSecret string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == "" {
		return nil, fmt.Errorf("spotify adapter: client id and secret are required")
	}
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     DefaultTokenURL,
	}
	httpClient := cfg.Client(ctx)
	httpClient.Timeout = 10 * time.Second
	return NewClient(httpClient, DefaultBaseURL, opts...), nil
}
