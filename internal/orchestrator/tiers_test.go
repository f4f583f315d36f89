package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectTier_DefaultThresholds(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, TierSmall, SelectTier(ctx, nil, "what time is it", nil))

	longQuery := ""
	for i := 0; i < 1000; i++ {
		longQuery += "word "
	}
	assert.Equal(t, TierLarge, SelectTier(ctx, nil, longQuery, nil))
}

func TestSelectTier_CountsHistoryTokens(t *testing.T) {
	ctx := context.Background()
	history := []HistoryMessage{{Role: "user", Text: "some prior context words here"}}
	tierWithHistory := SelectTier(ctx, nil, "hello", history)
	tierWithoutHistory := SelectTier(ctx, nil, "hello", nil)
	// Both stay small given short inputs, but the call must not panic or
	// ignore the history argument.
	assert.Equal(t, TierSmall, tierWithHistory)
	assert.Equal(t, TierSmall, tierWithoutHistory)
}

func TestMaxTokensForTier_KnownAndUnknown(t *testing.T) {
	assert.Equal(t, 256, MaxTokensForTier(TierSmall))
	assert.Equal(t, 512, MaxTokensForTier(TierMedium))
	assert.Equal(t, 1024, MaxTokensForTier(TierLarge))
	assert.Equal(t, 512, MaxTokensForTier(Tier("unknown")))
}

func TestModelForTier_NilAdminReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", ModelForTier(context.Background(), nil, TierSmall))
}
