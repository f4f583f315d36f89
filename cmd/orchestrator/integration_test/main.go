package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type queryResponse struct {
	Answer     string         `json:"answer"`
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Mode       string         `json:"mode"`
	Validation map[string]any `json:"validation"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8081", "orchestrator base URL")
	query := flag.String("query", "what's the weather today", "query text to send")
	sessionID := flag.String("session-id", "integration-test", "session id to send")
	timeout := flag.Duration("timeout", 15*time.Second, "request timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	body, err := json.Marshal(queryRequest{Query: *query, SessionID: *sessionID})
	if err != nil {
		log.Fatalf("marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *addr+"/query", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("call orchestrator: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("orchestrator returned status %d: %s", resp.StatusCode, string(b))
	}

	var qr queryResponse
	if err := json.Unmarshal(b, &qr); err != nil {
		log.Fatalf("decode response: %v", err)
	}

	out, _ := json.MarshalIndent(qr, "", "  ")
	fmt.Println(string(out))
}
