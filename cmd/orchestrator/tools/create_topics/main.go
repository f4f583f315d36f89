// Command create_topics provisions the telemetry bus topic ahead of time, for
// environments where auto-creation is disabled on the broker.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hearth-assist/orchestrator/internal/telemetrybus"
)

func parseCSV(s string) []string {
	fields := strings.Split(s, ",")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func main() {
	brokers := os.Getenv("TELEMETRY_KAFKA_BROKERS")
	if brokers == "" {
		brokers = "localhost:9092"
	}
	topic := os.Getenv("TELEMETRY_KAFKA_TOPIC")
	if topic == "" {
		topic = "voice-orchestrator.telemetry"
	}

	brokerList := parseCSV(brokers)
	if len(brokerList) == 0 {
		log.Fatal().Msg("no Kafka brokers configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := telemetrybus.EnsureTopic(ctx, brokerList, topic, 1, 1); err != nil {
		log.Fatal().Err(err).Str("topic", topic).Msg("ensure topic")
	}
	fmt.Printf("telemetry topic ready: %s\n", topic)
}
