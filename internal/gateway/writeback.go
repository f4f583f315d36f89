package gateway

import (
	"context"
	"time"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
	"github.com/hearth-assist/orchestrator/internal/observability"
)

// backendMetrics is the opaque payload posted to the admin service's metrics
// writeback endpoint; the admin service owns aggregation, this just reports
// one call's numbers (§4.E.4).
type backendMetrics struct {
	LatencyMS     int64   `json:"latency_ms"`
	TokensPerSec  float64 `json:"tokens_per_sec"`
	Success       bool    `json:"success"`
}

// Writeback reports per-call backend performance back to admin config.
// Failures are logged and swallowed: a writeback outage must never affect
// the response returned to the caller.
type Writeback struct {
	admin *adminconfig.Client
}

func NewWriteback(admin *adminconfig.Client) *Writeback {
	return &Writeback{admin: admin}
}

// Record computes latency_ms/tokens_per_sec for one completion call and
// posts them for backendID, best-effort.
func (wb *Writeback) Record(ctx context.Context, backendID string, latency time.Duration, completionTokens int, callErr error) {
	if wb == nil || wb.admin == nil {
		return
	}

	metrics := backendMetrics{
		LatencyMS: latency.Milliseconds(),
		Success:   callErr == nil,
	}
	if callErr == nil && latency > 0 {
		metrics.TokensPerSec = float64(completionTokens) / latency.Seconds()
	}

	if err := wb.admin.PostMetrics(ctx, backendID, metrics); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("backend", backendID).Msg("backend metrics writeback failed")
	}
}
