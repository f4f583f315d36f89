package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedicated_EnabledReflectsEndpoint(t *testing.T) {
	d := NewDedicated("weather", "", "", nil)
	assert.False(t, d.Enabled())

	d = NewDedicated("weather", "http://localhost:1234", "", nil)
	assert.True(t, d.Enabled())
}

func TestDedicated_SearchParsesResultsAndSetsAuthHeader(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"source":"weather","results":[{"title":"Sunny","snippet":"72F and clear","metadata":{"unit":"F"}}]}`))
	}))
	defer srv.Close()

	d := NewDedicated("weather", srv.URL, "secret-key", srv.Client())
	results, err := d.Search(context.Background(), "weather today", "Austin", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "weather today", gotQuery)
	assert.Equal(t, "weather", results[0].Source)
	assert.Equal(t, "Sunny", results[0].Title)
	assert.Equal(t, "72F and clear", results[0].Snippet)
	assert.Equal(t, "F", results[0].Metadata["unit"])
}

func TestDedicated_SearchReturnsErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDedicated("sports", srv.URL, "", srv.Client())
	_, err := d.Search(context.Background(), "scores", "", 3)
	assert.Error(t, err)
}
