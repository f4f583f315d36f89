package orchestrator

import (
	"context"
	"fmt"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
	"github.com/hearth-assist/orchestrator/internal/util"
)

// Tier is the selected model size class for a request (§4.D stage 2).
type Tier string

const (
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
)

// tierMaxTokens bounds each tier's max output tokens. It is not overridable
// via admin config.
var tierMaxTokens = map[Tier]int{
	TierSmall:  256,
	TierMedium:  512,
	TierLarge:  1024,
}

// SelectTier maps an input token count (query + carried history) to a model
// tier via a small table, overridable via admin config thresholds.
func SelectTier(ctx context.Context, admin *adminconfig.Client, query string, history []HistoryMessage) Tier {
	tokens := util.CountTokens(query)
	for _, h := range history {
		tokens += util.CountTokens(h.Text)
	}

	smallMax := 200
	mediumMax := 800
	if admin != nil {
		smallMax = intFlag(ctx, admin, "tier_threshold_small_tokens", smallMax)
		mediumMax = intFlag(ctx, admin, "tier_threshold_medium_tokens", mediumMax)
	}

	switch {
	case tokens <= smallMax:
		return TierSmall
	case tokens <= mediumMax:
		return TierMedium
	default:
		return TierLarge
	}
}

func intFlag(ctx context.Context, admin *adminconfig.Client, key string, def int) int {
	s := admin.GetStringFlag(ctx, key, "")
	if s == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return def
	}
	return n
}

// ModelForTier resolves the backend model name for tier, preferring an
// admin-configured override, falling back to the lowest-priority enabled
// backend, then to an empty string (letting the llm client's own default
// apply).
func ModelForTier(ctx context.Context, admin *adminconfig.Client, tier Tier) string {
	if admin != nil {
		if override := admin.GetStringFlag(ctx, "model_tier:"+string(tier), ""); override != "" {
			return override
		}
		backends := admin.GetBackends(ctx)
		if len(backends) > 0 {
			return backends[0].ModelName
		}
	}
	return ""
}

// MaxTokensForTier returns the max-output-tokens budget for tier.
func MaxTokensForTier(tier Tier) int {
	if n, ok := tierMaxTokens[tier]; ok {
		return n
	}
	return tierMaxTokens[TierMedium]
}
