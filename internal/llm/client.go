// Package llm provides the trimmed OpenAI-compatible chat-completions client
// shared by the orchestrator (model-backend synthesis, intent classifier,
// fact-check) and the gateway (router classifier, passthrough).
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"

	"github.com/hearth-assist/orchestrator/internal/observability"
)

// Message is a single chat turn.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// Request bundles the parameters of a single completion call. The core never
// streams (spec Non-goal) and never issues tool calls, so the envelope
// stays to text in, text out.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Response is the single textual output and the usage the backend reported,
// used for the gateway's latency/tokens-per-sec writeback (spec §4.E.4).
type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// Client wraps an OpenAI-compatible chat-completions endpoint. One Client is
// constructed per backend (the model backend, or any LLM used for
// classification/fact-check), since each may have its own endpoint/key.
type Client struct {
	sdk   sdk.Client
	model string
}

// NewClient builds a client against endpoint (empty uses the SDK's OpenAI
// default) with the given API key.
func NewClient(endpoint, apiKey, model string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model}
}

// Complete issues a single chat-completions call. The caller supplies its own
// context deadline; Complete does not impose one beyond req.Timeout (applied
// only if the context has no earlier deadline).
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	params := sdk.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    adaptMessages(req.Messages),
		Temperature: param.NewOpt(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.MaxTokens))
	}

	log := observability.LoggerWithTrace(ctx)
	start := time.Now()
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Warn().Err(err).Str("model", model).Dur("duration", dur).Msg("chat_completion_error")
		return Response{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(comp.Choices) == 0 {
		return Response{}, fmt.Errorf("chat completion: no choices returned")
	}
	log.Debug().Str("model", model).Dur("duration", dur).
		Int("prompt_tokens", int(comp.Usage.PromptTokens)).
		Int("completion_tokens", int(comp.Usage.CompletionTokens)).
		Msg("chat_completion_ok")

	return Response{
		Content:          comp.Choices[0].Message.Content,
		PromptTokens:     int(comp.Usage.PromptTokens),
		CompletionTokens: int(comp.Usage.CompletionTokens),
		Latency:          dur,
	}, nil
}

func adaptMessages(msgs []Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			out = append(out, sdk.SystemMessage(m.Content))
		case "assistant":
			out = append(out, sdk.AssistantMessage(m.Content))
		default:
			out = append(out, sdk.UserMessage(m.Content))
		}
	}
	return out
}
