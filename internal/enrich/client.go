// Package enrich sends note content to the external analysis service and
// stores what comes back. Nothing here can fail a note operation.
package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofrs/uuid/v5"
	"github.com/juju/ratelimit"
)

// ErrThrottled is returned when the outbound rate budget is exhausted.
var ErrThrottled = errors.New("enrichment throttled")

const maxResponseBytes = 1 << 20

// Request is the payload sent for analysis.
type Request struct {
	NoteID  uuid.UUID `json:"noteId"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
}

// Response is the analysis result.
type Response struct {
	Keywords  []string `json:"keywords"`
	Summary   string   `json:"summary"`
	Sentiment string   `json:"sentiment"`
}

// Client talks to the analysis service.
type Client interface {
	Analyze(ctx context.Context, req Request) (Response, error)
}

// Config configures the HTTP client.
type Config struct {
	Endpoint      string        `yaml:"endpoint"`
	APIKey        string        `yaml:"api_key"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int64         `yaml:"burst"`
}

// HTTPClient posts JSON to the analysis endpoint under a token-bucket budget.
type HTTPClient struct {
	endpoint string
	apiKey   string
	hc       *http.Client
	bucket   *ratelimit.Bucket
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client. Zero rate disables throttling.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	c := &HTTPClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		hc:       &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.bucket = ratelimit.NewBucketWithRate(cfg.RatePerSecond, burst)
	}
	return c
}

// Analyze sends one note for analysis.
func (c *HTTPClient) Analyze(ctx context.Context, req Request) (Response, error) {
	if c.bucket != nil && c.bucket.TakeAvailable(1) == 0 {
		return Response{}, ErrThrottled
	}

	body, err := sonic.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("analyze %s: %w", req.NoteID, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return Response{}, fmt.Errorf("analyze %s: status %d", req.NoteID, resp.StatusCode)
	}
	var out Response
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
