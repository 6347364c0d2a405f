package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrTruncated means the model stopped at its output limit. A truncated
// response must never be adopted as a candidate.
var ErrTruncated = errors.New("generation truncated")

// Message is one role/content turn.
type Message struct {
	Role    string
	Content string
}

// Request describes one generation call.
type Request struct {
	System      string
	Messages    []Message
	Model       string
	Temperature float32
	JSONMode    bool
}

// Result is the text outcome of a generation call.
type Result struct {
	Text         string
	FinishReason string
}

// Generator is the generation capability the optimizer consumes: given
// context, return candidate text. Implementations must honor the context
// deadline.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Client calls an OpenAI-compatible chat completions API with a per-attempt
// timeout and bounded retries for transient failures.
type Client struct {
	api         *openai.Client
	timeout     time.Duration
	maxAttempts int
}

// NewClient builds a Client. baseURL may be empty for the default endpoint.
func NewClient(apiKey, baseURL string, timeout time.Duration, maxAttempts int) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{api: openai.NewClientWithConfig(cfg), timeout: timeout, maxAttempts: maxAttempts}
}

// Generate performs one chat completion. Transport failures are retried up to
// the attempt budget; truncation is surfaced as ErrTruncated alongside the
// partial text and is not retried.
func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		attemptCtx := ctx
		cancel := func() {}
		if c.timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		resp, err := c.api.CreateChatCompletion(attemptCtx, chatReq)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			lastErr = err
			log.Printf("generation attempt %d/%d failed: %v", attempt, c.maxAttempts, err)
			time.Sleep(time.Duration(attempt) * time.Second)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no choices in response")
			continue
		}

		choice := resp.Choices[0]
		result := Result{Text: choice.Message.Content, FinishReason: string(choice.FinishReason)}
		if choice.FinishReason == openai.FinishReasonLength {
			return result, fmt.Errorf("%w (model %s)", ErrTruncated, req.Model)
		}
		return result, nil
	}
	return Result{}, fmt.Errorf("generation failed after %d attempts: %w", c.maxAttempts, lastErr)
}
