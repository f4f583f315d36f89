package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter_DefaultRouting(t *testing.T) {
	r := NewRouter(nil)
	assert.Equal(t, []string{"event-api-1", "event-api-2", "general-web-1", "general-web-2"}, r.ProvidersFor(context.Background(), IntentEventSearch))
	assert.Equal(t, []string{"weather"}, r.ProvidersFor(context.Background(), IntentWeather))
	assert.Empty(t, r.ProvidersFor(context.Background(), IntentControl))
	assert.Empty(t, r.ProvidersFor(context.Background(), IntentGreeting))
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitCSV("a,b,c"))
	assert.Equal(t, []string{"a"}, splitCSV("a"))
	assert.Empty(t, splitCSV(""))
}
