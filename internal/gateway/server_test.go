package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hearth-assist/orchestrator/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, passthroughSrv *httptest.Server) *Server {
	t.Helper()
	router := NewRouter(nil, "")
	passthrough := NewPassthrough(nil, "default-model", passthroughSrv.URL, nil)
	return NewServer(router, passthrough, nil, NewRateLimiter(&cache.Client{}), nil, nil, &cache.Client{})
}

func TestHandleChatCompletions_RejectsStreaming(t *testing.T) {
	backend := chatServerWithContent(t, "unused")
	defer backend.Close()
	s := newTestServer(t, backend)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewBufferString(`{"model":"default-model","messages":[{"role":"user","content":"hi"}],"stream":true}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleChatCompletions_RejectsEmptyQuery(t *testing.T) {
	backend := chatServerWithContent(t, "unused")
	defer backend.Close()
	s := newTestServer(t, backend)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewBufferString(`{"model":"default-model","messages":[{"role":"user","content":""}]}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleChatCompletions_PassthroughHappyPath(t *testing.T) {
	backend := chatServerWithContent(t, "general chit-chat reply")
	defer backend.Close()
	s := newTestServer(t, backend)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewBufferString(`{"model":"default-model","messages":[{"role":"user","content":"tell me a joke"}]}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ChatCompletionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "general chit-chat reply", resp.Choices[0].Message.Content)
}

func TestHandleHealth_ReportsHealthyWithNoDependencies(t *testing.T) {
	backend := chatServerWithContent(t, "unused")
	defer backend.Close()
	s := newTestServer(t, backend)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var health HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
}
