package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
	"github.com/hearth-assist/orchestrator/internal/llm"
)

// Passthrough forwards a chat request directly to a selected model backend,
// bypassing the orchestrator entirely (§4.E step 2).
type Passthrough struct {
	admin        *adminconfig.Client
	defaultModel string
	defaultURL   string
	writeback    *Writeback
}

func NewPassthrough(admin *adminconfig.Client, defaultModel, defaultURL string, writeback *Writeback) *Passthrough {
	return &Passthrough{admin: admin, defaultModel: defaultModel, defaultURL: defaultURL, writeback: writeback}
}

// selectBackend implements the backend-selection rule exactly: prefer an
// enabled backend whose model_name matches the request's requested model;
// otherwise the lowest-priority enabled backend; otherwise the configured
// default.
func (p *Passthrough) selectBackend(ctx context.Context, requestedModel string) adminconfig.BackendSpec {
	var backends []adminconfig.BackendSpec
	if p.admin != nil {
		backends = p.admin.GetBackends(ctx)
	}
	if requestedModel != "" {
		for _, b := range backends {
			if b.ModelName == requestedModel {
				return b
			}
		}
	}
	if len(backends) > 0 {
		return backends[0]
	}
	return adminconfig.BackendSpec{
		ModelName:      p.defaultModel,
		EndpointURL:    p.defaultURL,
		TimeoutSeconds: 30,
	}
}

// Forward selects a backend and issues the chat-completions call, measuring
// latency/tokens-per-sec for the performance writeback.
func (p *Passthrough) Forward(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	backend := p.selectBackend(ctx, req.Model)

	timeout := time.Duration(backend.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := llm.NewClient(backend.EndpointURL, "", backend.ModelName)
	temperature := 0.7
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := backend.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	resp, err := client.Complete(ctx, llm.Request{
		Model:       backend.ModelName,
		Messages:    adaptChatMessages(req.Messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Timeout:     timeout,
	})

	if p.writeback != nil {
		p.writeback.Record(ctx, backend.ModelName, resp.Latency, resp.CompletionTokens, err)
	}
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("passthrough forward: %w", err)
	}

	return ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   backend.ModelName,
		Choices: []ChatCompletionChoice{{
			Index:        0,
			Message:      ChatMessage{Role: "assistant", Content: resp.Content},
			FinishReason: "stop",
		}},
		Usage: Usage{
			PromptTokens:     resp.PromptTokens,
			CompletionTokens: resp.CompletionTokens,
			TotalTokens:      resp.PromptTokens + resp.CompletionTokens,
		},
	}, nil
}

func adaptChatMessages(msgs []ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
