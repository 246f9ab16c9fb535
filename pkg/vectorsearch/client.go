// Package vectorsearch provides a client for the course vector-search
// service that answers nearest-neighbor queries over the course index.
package vectorsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/piloturl/test-analysis/internal/resilience"
)

// Client defines the vector-search operations used by the course-matching
// stage.
type Client interface {
	// Query returns up to limit nearest courses for the query text.
	Query(ctx context.Context, text string, limit int) ([]Neighbor, error)
}

// Neighbor is one scored course candidate from the index.
type Neighbor struct {
	ID       string            `json:"id"`
	Distance float64           `json:"distance"`
	Metadata map[string]string `json:"metadata"`
}

type queryRequest struct {
	Query        string `json:"query"`
	NumNeighbors int    `json:"numNeighbors"`
}

type queryResponse struct {
	Neighbors []Neighbor `json:"neighbors"`
}

// Option configures the vector-search client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout bounds each query call.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(maxAttempts int) Option {
	return func(c *httpClient) {
		if maxAttempts > 0 {
			c.retry.MaxAttempts = maxAttempts
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	indexID string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a vector-search client for one deployed index.
func NewClient(baseURL, apiKey, indexID string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		indexID: indexID,
		http:    &http.Client{Timeout: 15 * time.Second},
		retry:   resilience.DefaultRetryConfig(),
	}
	c.retry.OnRetry = resilience.RetryLogger("vectorsearch", "query")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Query(ctx context.Context, text string, limit int) ([]Neighbor, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]Neighbor, error) {
		return c.queryOnce(ctx, text, limit)
	})
}

func (c *httpClient) queryOnce(ctx context.Context, text string, limit int) ([]Neighbor, error) {
	body, err := json.Marshal(queryRequest{Query: text, NumNeighbors: limit})
	if err != nil {
		return nil, eris.Wrap(err, "vectorsearch: marshal query")
	}

	url := fmt.Sprintf("%s/v1/indexes/%s/query", c.baseURL, c.indexID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "vectorsearch: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewUnavailableError(eris.Wrap(err, "vectorsearch: query request"), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := eris.Errorf("vectorsearch: query returned %d: %s", resp.StatusCode, string(data))
		if resilience.IsUnavailableHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewUnavailableError(err, resp.StatusCode)
		}
		return nil, err
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "vectorsearch: decode response")
	}
	return out.Neighbors, nil
}
