package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL  = "https://api.openai.com/v1"
	DefaultModel    = "gpt-4"
	completionsPath = "/chat/completions"
	operationName   = "chat_completion"
	finishReasonCut = "length"
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
)

var errEnvelope = errors.New("unexpected completion envelope")

type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float64
	MaxTokens         int
	RequestsPerSecond float64
	Resilience        resilience.Config
}

// CallObserver records the outcome and latency of every completion call.
type CallObserver interface {
	ObserveModelCall(model, outcome string, elapsed time.Duration)
}

// Client talks to an OpenAI-compatible chat completions endpoint. It is safe
// for concurrent use.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int

	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
	observer   CallObserver
	listener   resilience.StateListener
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithObserver(observer CallObserver) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithBreakerListener forwards circuit breaker transitions, e.g. to a gauge.
func WithBreakerListener(listener resilience.StateListener) Option {
	return func(c *Client) {
		c.listener = listener
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(cfg Config, opts ...Option) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{},
		limiter:     rate.NewLimiter(limit, 1),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.executor = resilience.NewExecutor(cfg.Resilience,
		resilience.WithLogger(c.logger),
		resilience.WithStateListener(c.listener),
	)
	return c
}

// Invoke sends a single user message and returns the assistant text.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	return c.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.ChatMessage{{Role: "user", Content: prompt}},
	})
}

// Complete sends one chat completion. Failures come back as
// *domain.ModelInvocationError.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "chat completion", errors.New("no messages"))
	}

	payload := c.buildRequest(req)
	started := time.Now()

	var content string
	err := c.executor.Execute(ctx, operationName, func(attemptCtx context.Context) error {
		if err := c.limiter.Wait(attemptCtx); err != nil {
			return fmt.Errorf("wait for model rate limit: %w", err)
		}
		text, err := c.complete(attemptCtx, payload)
		if err != nil {
			return err
		}
		content = text
		return nil
	}, classifyModelError)

	c.observe(err, time.Since(started))
	if err != nil {
		return "", toInvocationError(err)
	}
	return content, nil
}

func (c *Client) buildRequest(req domain.CompletionRequest) chatRequest {
	payload := chatRequest{
		Model:       c.model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	for _, msg := range req.Messages {
		payload.Messages = append(payload.Messages, chatMessage{Role: msg.Role, Content: msg.Content})
	}
	if req.Temperature != nil {
		payload.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		payload.MaxTokens = req.MaxTokens
	}
	return payload
}

func (c *Client) complete(ctx context.Context, payload chatRequest) (string, error) {
	var response chatResponse
	if err := c.postJSON(ctx, completionsPath, payload, &response, operationName); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", errEnvelope)
	}
	choice := response.Choices[0]
	if choice.Message.Content == nil {
		return "", fmt.Errorf("%w: choice without content", errEnvelope)
	}
	if choice.FinishReason == finishReasonCut {
		c.logger.Warn("model_response_truncated",
			"model", c.model,
			"max_tokens", payload.MaxTokens,
		)
	}
	return *choice.Message.Content, nil
}

func (c *Client) observe(err error, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	c.observer.ObserveModelCall(c.model, outcome, elapsed)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
