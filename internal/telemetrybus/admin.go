package telemetrybus

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hearth-assist/orchestrator/internal/observability"
)

// EnsureTopic creates topic on the cluster reached via brokers if it does not
// already exist. Intended for startup in environments without a separate
// topic-provisioning step; a missing broker or a topic that already exists
// is not an error the caller must fail startup over — telemetry is best
// effort end to end, so a failure here is logged and the process continues
// without a telemetry bus.
func EnsureTopic(ctx context.Context, brokers []string, topic string, partitions, replicationFactor int) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers provided")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("get controller: %w", err)
	}
	controllerAddr := net.JoinHostPort(controller.Host, fmt.Sprint(controller.Port))

	ctrlConn, err := kafka.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", controllerAddr, err)
	}
	defer ctrlConn.Close()

	parts, err := ctrlConn.ReadPartitions(topic)
	if err == nil && len(parts) > 0 {
		return nil
	}

	cfg := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	}
	if err := ctrlConn.CreateTopics(cfg); err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}

// CheckBrokers dials each broker until one responds or timeout elapses, used
// at startup to decide whether the telemetry bus should be enabled at all.
func CheckBrokers(ctx context.Context, brokers []string, timeout time.Duration) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers provided")
	}

	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		for _, b := range brokers {
			conn, err := kafka.DialContext(ctx, "tcp", b)
			if err == nil {
				_ = conn.Close()
				return nil
			}
			lastErr = err
		}
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	observability.LoggerWithTrace(ctx).Warn().Err(lastErr).Strs("brokers", brokers).Msg("telemetry bus brokers unreachable at startup")
	return fmt.Errorf("failed to reach any broker within %s: last error: %v", timeout, lastErr)
}
