// Package llm is the AI completion client: plain completions with retry and
// a bounded tool-calling loop over a pluggable Model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"pharmassist-backend/logging"
	"pharmassist-backend/metrics"
)

const (
	maxRetries           = 3
	initialBackoff       = 1 * time.Second
	maxPromptChars       = 30000
	defaultMaxIterations = 5
)

var (
	ErrUnavailable      = errors.New("AI service unavailable")
	ErrToolLoopExceeded = fmt.Errorf("%w: tool-call loop exceeded iteration limit", ErrUnavailable)
	errEmptyResponse    = errors.New("model returned empty content")
)

// Client sends prompts to a Model
type Client struct {
	model          Model
	maxIterations  int
	initialBackoff time.Duration
	logger         *zap.Logger
	metrics        *metrics.Metrics
}

// ClientOption is a functional option for Client
type ClientOption func(*Client)

// WithMaxToolIterations bounds the number of model turns in CompleteWithTools
func WithMaxToolIterations(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithBackoff sets the delay before the first retry; it doubles after each attempt
func WithBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		c.initialBackoff = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client over model
func NewClient(model Model, opts ...ClientOption) *Client {
	c := &Client{
		model:          model,
		maxIterations:  defaultMaxIterations,
		initialBackoff: initialBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)
	return c
}

// Complete sends prompt and returns the response text. Transient failures and
// empty responses are retried; the last failure is returned wrapped in
// ErrUnavailable.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := c.complete(ctx, c.truncate(prompt))
	c.metrics.AIRequest("complete", err, time.Since(start))
	if err != nil {
		c.logger.Error("AI completion failed", zap.Error(err))
	}
	return text, err
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	backoff := c.initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		text, err := c.model.Generate(ctx, prompt)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errEmptyResponse
		}
		if err == nil {
			return text, nil
		}

		lastErr = err
		c.logger.Warn("AI attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return "", fmt.Errorf("%w: failed after %d attempts: %w", ErrUnavailable, maxRetries, lastErr)
}

// CompleteWithTools sends prompt in a chat session with tools bound and
// resolves tool calls until the model answers with text. The model is called
// at most maxIterations times; a model still requesting tools after that
// yields ErrToolLoopExceeded.
func (c *Client) CompleteWithTools(ctx context.Context, prompt string, tools ...Tool) (string, error) {
	start := time.Now()
	text, err := c.completeWithTools(ctx, c.truncate(prompt), tools)
	c.metrics.AIRequest("tools", err, time.Since(start))
	if err != nil {
		c.logger.Error("AI tool completion failed", zap.Error(err))
	}
	return text, err
}

func (c *Client) completeWithTools(ctx context.Context, prompt string, tools []Tool) (string, error) {
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
	}

	session := c.model.StartChat(tools)
	var results []ToolResult
	for iteration := 1; iteration <= c.maxIterations; iteration++ {
		var (
			turn *Turn
			err  error
		)
		if iteration == 1 {
			turn, err = session.Send(ctx, prompt)
		} else {
			turn, err = session.SendToolResults(ctx, results)
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		if len(turn.ToolCalls) == 0 {
			if strings.TrimSpace(turn.Text) == "" {
				return "", fmt.Errorf("%w: %w", ErrUnavailable, errEmptyResponse)
			}
			return turn.Text, nil
		}

		results = make([]ToolResult, 0, len(turn.ToolCalls))
		for _, call := range turn.ToolCalls {
			results = append(results, c.runTool(ctx, byName, call))
		}
	}
	return "", ErrToolLoopExceeded
}

func (c *Client) runTool(ctx context.Context, tools map[string]Tool, call ToolCall) ToolResult {
	tool, ok := tools[call.Name]
	if !ok {
		c.logger.Warn("model requested unknown tool", zap.String("tool", call.Name))
		return ToolResult{Name: call.Name, Err: fmt.Errorf("unknown tool %q", call.Name)}
	}

	c.logger.Debug("running tool", zap.String("tool", call.Name), zap.Any("args", call.Args))
	out, err := tool.Run(ctx, call.Args)
	if err != nil {
		c.logger.Warn("tool failed", zap.String("tool", call.Name), zap.Error(err))
	}
	return ToolResult{Name: call.Name, Output: out, Err: err}
}

func (c *Client) truncate(prompt string) string {
	chars := utf8.RuneCountInString(prompt)
	if chars <= maxPromptChars {
		return prompt
	}
	c.logger.Warn("prompt too long, truncating",
		zap.Int("chars", chars),
		zap.Int("limit", maxPromptChars),
	)
	return string([]rune(prompt)[:maxPromptChars]) + "\n\n[Content truncated due to length...]"
}
