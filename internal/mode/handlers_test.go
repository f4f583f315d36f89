package mode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Current(t *testing.T) {
	cfgFn := func(ctx context.Context) Config { return Config{} }
	svc := NewService(cfgFn, nil, nil)
	h := NewHandler(svc)

	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/mode/current", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var snap Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, Guest, snap.Mode)
}

func TestHandler_Events(t *testing.T) {
	cfgFn := func(ctx context.Context) Config { return Config{} }
	svc := NewService(cfgFn, nil, nil)
	h := NewHandler(svc)

	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/mode/events", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var events []Event
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&events))
	assert.Empty(t, events)
}
