package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthrough_NoBackendsConfiguredUsesDefault(t *testing.T) {
	srv := chatServerWithContent(t, "hello from default backend")
	defer srv.Close()

	p := NewPassthrough(nil, "default-model", srv.URL, nil)
	resp, err := p.Forward(context.Background(), ChatCompletionRequest{
		Model:    "default-model",
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello from default backend", resp.Choices[0].Message.Content)
	assert.Equal(t, "default-model", resp.Model)
}

func TestPassthrough_RecordsWriteback(t *testing.T) {
	srv := chatServerWithContent(t, "ok")
	defer srv.Close()

	var gotBackendID string
	metricsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBackendID = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer metricsSrv.Close()

	// Writeback posts to its own adminconfig.Client baseURL; point it at metricsSrv.
	admin := newAdminClientForTest(t, metricsSrv.URL)
	wb := NewWriteback(admin)

	p := NewPassthrough(nil, "default-model", srv.URL, wb)
	_, err := p.Forward(context.Background(), ChatCompletionRequest{
		Model:    "default-model",
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Contains(t, gotBackendID, "/api/metrics/backend/default-model")
}

func TestPassthrough_ForwardErrorPropagatesWithoutPanic(t *testing.T) {
	p := NewPassthrough(nil, "default-model", "http://127.0.0.1:1", nil)
	_, err := p.Forward(context.Background(), ChatCompletionRequest{
		Model:    "default-model",
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	assert.Error(t, err)
}

func TestAdaptChatMessages_PreservesOrderAndRoles(t *testing.T) {
	msgs := []ChatMessage{{Role: "system", Content: "a"}, {Role: "user", Content: "b"}}
	out := adaptChatMessages(msgs)
	require.Len(t, out, 2)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "user", out[1].Role)
}

