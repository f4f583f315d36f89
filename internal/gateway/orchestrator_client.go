package gateway

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// orchestratorQueryRequest/Response mirror the orchestrator's internal
// POST /query contract (§6). Duplicated here rather than imported so the
// gateway never needs the orchestrator's internal package, only its wire
// shape.
type orchestratorQueryRequest struct {
	Query     string            `json:"query"`
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
}

type orchestratorQueryResponse struct {
	Answer     string         `json:"answer"`
	Citations  []any          `json:"citations"`
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Mode       string         `json:"mode"`
	Validation map[string]any `json:"validation"`
	Metadata   map[string]any `json:"metadata"`
}

// OrchestratorClient calls the orchestrator process's internal query API
// (§4.E step 3).
type OrchestratorClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOrchestratorClient(baseURL string, httpClient *http.Client) *OrchestratorClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OrchestratorClient{baseURL: baseURL, httpClient: httpClient}
}

// Query extracts the last user message from req, derives a session_id, calls
// the orchestrator, and wraps the answer in an OpenAI-style envelope.
func (oc *OrchestratorClient) Query(ctx context.Context, req ChatCompletionRequest, sessionID string) (ChatCompletionResponse, error) {
	query := lastUserMessage(req.Messages)
	if sessionID == "" {
		sessionID = derivedSessionID(req.Messages)
	}

	body, err := json.Marshal(orchestratorQueryRequest{Query: query, SessionID: sessionID})
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("marshal orchestrator query: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, oc.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("build orchestrator query: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := oc.httpClient.Do(httpReq)
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("call orchestrator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ChatCompletionResponse{}, fmt.Errorf("orchestrator query: status %d: %s", resp.StatusCode, string(b))
	}

	var oqr orchestratorQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&oqr); err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("decode orchestrator response: %w", err)
	}

	return ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   "orchestrator",
		Choices: []ChatCompletionChoice{{
			Index:        0,
			Message:      ChatMessage{Role: "assistant", Content: oqr.Answer},
			FinishReason: "stop",
		}},
	}, nil
}

func lastUserMessage(msgs []ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if strings.EqualFold(msgs[i].Role, "user") {
			return msgs[i].Content
		}
	}
	return ""
}

// derivedSessionID hashes the conversation prefix into a stable id when the
// client supplies no session header, so repeated calls from the same
// conversation land on the same orchestrator session (§4.E step 3).
func derivedSessionID(msgs []ChatMessage) string {
	h := sha1.New()
	for _, m := range msgs {
		h.Write([]byte(m.Role))
		h.Write([]byte(m.Content))
	}
	return "sess-" + hex.EncodeToString(h.Sum(nil))[:16]
}
