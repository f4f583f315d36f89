// Package telemetrybus publishes a best-effort TelemetryEvent per finalised
// orchestration onto a Kafka topic for downstream analytics. It is adapted
// from the teacher's command/response bus producer: this core uses only the
// write side, since telemetry here is fire-and-forget, not request/reply.
package telemetrybus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hearth-assist/orchestrator/internal/observability"
)

// TelemetryEvent summarises one finalised orchestration for offline analysis.
// It mirrors the fields of OrchestratorState that are cheap to serialise and
// useful outside the hot path; it is never read back by the core itself.
type TelemetryEvent struct {
	RequestID       string             `json:"request_id"`
	SessionID       string             `json:"session_id,omitempty"`
	Intent          string             `json:"intent"`
	Confidence      float64            `json:"confidence"`
	Mode            string             `json:"mode"`
	ValidationOK    bool               `json:"validation_passed"`
	ValidationWhy   string             `json:"validation_reason,omitempty"`
	PolicyBlocked   bool               `json:"policy_blocked"`
	TimedOut        bool               `json:"timed_out"`
	NodeTimings     map[string]float64 `json:"node_timings"`
	RetrievedCount  int                `json:"retrieved_count"`
	FinalisedAtUnix int64              `json:"finalised_at_unix"`
}

// Publisher is a best-effort, non-blocking publisher. Every publish failure
// is logged and swallowed: telemetry loss never affects the request path.
type Publisher struct {
	writer *kafka.Writer
	topic  string
}

// NewPublisher constructs a publisher against brokers for topic. Writes are
// async (fire-and-forget) with a bounded batch timeout, matching the
// "logged and swallowed" failure semantics of performance writeback.
func NewPublisher(brokers []string, topic string) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		Async:        true,
		BatchTimeout: 500 * time.Millisecond,
		ErrorLogger:  kafkaErrorLogger{},
	}
	return &Publisher{writer: w, topic: topic}
}

// Publish enqueues event for async delivery. It never blocks the caller on
// broker availability beyond building the message, and never returns an
// error the caller must act on.
func (p *Publisher) Publish(ctx context.Context, event TelemetryEvent) {
	if p == nil || p.writer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("telemetry event not serializable")
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RequestID),
		Value: payload,
	}); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("topic", p.topic).Msg("telemetry publish failed")
	}
}

// Close flushes and releases the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// kafkaErrorLogger routes the Kafka client's internal error logging through
// the rest of the system's structured logger instead of the stdlib logger
// kafka-go defaults to.
type kafkaErrorLogger struct{}

func (kafkaErrorLogger) Printf(format string, args ...any) {
	observability.LoggerWithTrace(context.Background()).Warn().Msgf(format, args...)
}
