package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyWithKeywords_Defaults(t *testing.T) {
	c := &Classifier{}

	cases := map[string]Intent{
		"turn on the living room lights": IntentControl,
		"hello there":                    IntentGreeting,
		"what's the weather tomorrow":    IntentWeather,
		"what was the score of the game": IntentSports,
		"when does my flight depart":     IntentAirports,
		"any concerts near me tonight":   IntentEventSearch,
		"latest news on the election":    IntentNews,
		"restaurant hours for joe's diner": IntentLocalBusiness,
		"tell me something interesting":  IntentGeneral,
	}

	for query, want := range cases {
		got := c.classifyWithKeywords(context.TODO(), query)
		assert.Equal(t, want, got.Intent, "query=%q", query)
	}
}

func TestParseCategoryConfidence(t *testing.T) {
	intent, conf, ok := parseCategoryConfidence("CATEGORY:weather CONFIDENCE:0.92")
	require.True(t, ok)
	assert.Equal(t, IntentWeather, intent)
	assert.InDelta(t, 0.92, conf, 0.001)

	_, _, ok = parseCategoryConfidence("not a match")
	assert.False(t, ok)
}
