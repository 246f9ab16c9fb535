// Package generative provides a narrow client for the generative-model API
// used by the weakness-extraction and summary stages.
package generative

import (
	"context"
	"errors"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/piloturl/test-analysis/internal/resilience"
)

// Client defines the generative-model operations used by the pipeline.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int64
	Temperature *float64
}

// Usage tracks token consumption for one invocation.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response holds the model's text output and token usage.
type Response struct {
	Text  string
	Usage Usage
}

// Option configures the client.
type Option func(*sdkClient)

// WithRequestsPerSecond sets a client-side rate limit on completions.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *sdkClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithTimeout bounds each completion attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *sdkClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxTokens sets the default max output tokens for requests that leave
// MaxTokens unset.
func WithMaxTokens(n int64) Option {
	return func(c *sdkClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(maxAttempts int) Option {
	return func(c *sdkClient) {
		if maxAttempts > 0 {
			c.retry.MaxAttempts = maxAttempts
		}
	}
}

type sdkClient struct {
	client    sdk.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewClient creates a generative client backed by the SDK.
func NewClient(apiKey, model string, opts ...Option) Client {
	c := &sdkClient{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: 4096,
		timeout:   60 * time.Second,
		retry:     resilience.DefaultRetryConfig(),
	}
	c.retry.OnRetry = resilience.RetryLogger("generative", "complete")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *sdkClient) Complete(ctx context.Context, req Request) (*Response, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Response, error) {
		return c.completeOnce(ctx, req)
	})
}

func (c *sdkClient) completeOnce(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "generative: rate limit wait")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(eris.Wrap(err, "generative: create message"))
	}

	var text string
	for _, b := range msg.Content {
		if b.Type == "text" {
			text += b.Text
		}
	}

	return &Response{
		Text: text,
		Usage: Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}, nil
}

// classify tags API failures worth retrying. Non-API errors are transport
// failures and always count as unavailable.
func classify(err error) error {
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		if resilience.IsUnavailableHTTPStatus(apierr.StatusCode) {
			return resilience.NewUnavailableError(err, apierr.StatusCode)
		}
		return err
	}
	return resilience.NewUnavailableError(err, 0)
}
