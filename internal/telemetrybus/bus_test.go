package telemetrybus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublisher_NilSafe(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() {
		p.Publish(context.Background(), TelemetryEvent{RequestID: "r1"})
	})
	assert.NoError(t, p.Close())
}

func TestNewPublisher_SetsTopic(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "voice-orchestrator.telemetry")
	assert.Equal(t, "voice-orchestrator.telemetry", p.topic)
	_ = p.Close()
}
