package llm

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// Model is the model to use. Defaults to Claude Sonnet.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// MaxTokens bounds each completion. Defaults to 4000.
	MaxTokens int64
	// Timeout is the per-request timeout. Defaults to 30s.
	Timeout time.Duration
	// MaxRetries is the number of attempts per request. Defaults to 3.
	MaxRetries int
	// RetryDelay is the base delay for exponential backoff. Defaults to 1s.
	RetryDelay time.Duration
	// CacheEnabled turns on the in-memory response cache.
	CacheEnabled bool
	// CacheTTL is the cache entry lifetime. Defaults to 1h.
	CacheTTL time.Duration
	// CacheMaxSize bounds the cache entry count. Defaults to 1000.
	CacheMaxSize int
}

// Client wraps the Anthropic SDK with caching, rate limiting and retries.
// It implements Completer.
type Client struct {
	inner anthropic.Client
	cfg   ClientConfig
	cache *responseCache

	mu          sync.Mutex
	lastRequest time.Time
	requests    int
}

// minRequestGap throttles outbound requests.
const minRequestGap = 100 * time.Millisecond

// NewClient creates a new completion client.
// Returns an error if no API key is configured.
func NewClient(cfg ClientConfig) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}

	if cfg.Model == "" {
		cfg.Model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.CacheMaxSize <= 0 {
		cfg.CacheMaxSize = 1000
	}

	c := &Client{
		inner: anthropic.NewClient(option.WithAPIKey(apiKey)),
		cfg:   cfg,
	}
	if cfg.CacheEnabled {
		c.cache = newResponseCache(cfg.CacheTTL, cfg.CacheMaxSize)
	}
	return c, nil
}

// Complete produces a text completion for the prompt.
// Cached responses are returned without a network round-trip.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	var key string
	if c.cache != nil {
		key = c.cache.key(prompt, temperature)
		if text, ok := c.cache.get(key); ok {
			return text, nil
		}
	}

	c.throttle()

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.RetryDelay * time.Duration(1<<(attempt-1))
			log.Printf("[llm] retrying after %s (attempt %d)", delay, attempt+1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.complete(ctx, prompt, temperature)
		if err == nil {
			if c.cache != nil {
				c.cache.put(key, text)
			}
			c.mu.Lock()
			c.requests++
			c.mu.Unlock()
			return text, nil
		}
		lastErr = err
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

// complete performs a single Messages API call.
func (c *Client) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.inner.Messages.New(reqCtx, anthropic.MessageNewParams{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			return text.Text, nil
		}
	}
	return "", fmt.Errorf("response contained no text block")
}

// throttle enforces a minimum gap between outbound requests.
func (c *Client) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if since := time.Since(c.lastRequest); since < minRequestGap {
		time.Sleep(minRequestGap - since)
	}
	c.lastRequest = time.Now()
}

// Stats reports client counters for status output.
func (c *Client) Stats() (requests, cached int) {
	c.mu.Lock()
	requests = c.requests
	c.mu.Unlock()

	if c.cache != nil {
		cached = c.cache.size()
	}
	return requests, cached
}
