// Package openai provides an embedder backed by an OpenAI-compatible
// embeddings endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"golang.org/x/time/rate"

	"esgalign/internal/domain"
	"esgalign/internal/embedding"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = oai.EmbeddingModelTextEmbedding3Small

var _ domain.Embedder = (*Client)(nil)

// Config configures the client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	// MaxRetries is passed to the SDK, which retries 429 and 5xx responses
	// with backoff. Negative means the SDK default.
	MaxRetries int
	// RequestsPerSecond throttles outgoing requests. Zero disables it.
	RequestsPerSecond float64
}

// Client implements domain.Embedder over the embeddings API.
type Client struct {
	client    oai.Client
	model     string
	limiter   *rate.Limiter
	dimension atomic.Int64
}

// NewClient builds a client. The API key is read from the environment
// variable named by cfg.APIKeyEnv.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("openai: missing API key in env %s", cfg.APIKeyEnv)
	}
	return newClient(key, cfg), nil
}

func newClient(key string, cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	c := &Client{
		client: oai.NewClient(opts...),
		model:  cfg.Model,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if d := knownDimensions(cfg.Model); d > 0 {
		c.dimension.Store(int64(d))
	}
	return c
}

// Name identifies the embedder and model, so cached vectors from different
// models never mix.
func (c *Client) Name() string { return "openai:" + c.model }

// Dimension is the vector size, learned from the first response for
// unknown models.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

// Embed returns the embedding of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	resp, err := c.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: c.model,
		Input: oai.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("openai: empty response")
	}
	vec := resp.Data[0].Embedding
	if want := c.Dimension(); want != 0 && len(vec) != want {
		return nil, fmt.Errorf("openai: got %d dimensions, want %d", len(vec), want)
	}
	c.dimension.CompareAndSwap(0, int64(len(vec)))
	return vec, nil
}

// Similarity is cosine similarity.
func (c *Client) Similarity(a, b []float64) (float64, error) {
	return embedding.Cosine(a, b)
}

func knownDimensions(model string) int {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "text-embedding-3-large"):
		return 3072
	case strings.Contains(lower, "text-embedding-3-small"), strings.Contains(lower, "text-embedding-ada-002"):
		return 1536
	}
	return 0
}
