package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdaptMessages(t *testing.T) {
	in := []Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "unknown", Content: "fallback to user"},
	}
	out := adaptMessages(in)
	assert.Len(t, out, 4)
}

func TestNewClient_DefaultModel(t *testing.T) {
	c := NewClient("http://localhost:9999/v1", "test-key", "local-model")
	assert.Equal(t, "local-model", c.model)
}
