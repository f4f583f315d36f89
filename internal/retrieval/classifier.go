package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
	"github.com/hearth-assist/orchestrator/internal/cache"
	"github.com/hearth-assist/orchestrator/internal/llm"
	"github.com/hearth-assist/orchestrator/internal/observability"
)

// defaultRules is the built-in fallback ordered rule list, used when the
// admin service has none configured. First match wins; no match yields
// IntentGeneral.
var defaultRules = []struct {
	intent   Intent
	patterns []*regexp.Regexp
}{
	{IntentControl, compileAll(`\b(turn|switch)\s+(on|off)\b`, `\b(lock|unlock)\b`, `\bdim\b`, `\bset\s+(the\s+)?thermostat\b`)},
	{IntentGreeting, compileAll(`^(hi|hello|hey|good morning|good evening)\b`)},
	{IntentWeather, compileAll(`\bweather\b`, `\bforecast\b`, `\btemperature\b`, `\brain(ing)?\b`, `\bsnow\b`)},
	{IntentSports, compileAll(`\bscore\b`, `\bgame\b`, `\bmatch\b`, `\bplayoffs?\b`, `\bleague\b`)},
	{IntentAirports, compileAll(`\bflight\b`, `\bairport\b`, `\bdeparture\b`, `\barrival\b`, `\bgate\b`)},
	{IntentEventSearch, compileAll(`\bconcerts?\b`, `\btickets?\b`, `\bshow(s)?\s+(tonight|this weekend|near)\b`, `\bevents?\s+(in|near|tonight)\b`)},
	{IntentNews, compileAll(`\bnews\b`, `\bheadlines?\b`, `\blatest\s+on\b`)},
	{IntentLocalBusiness, compileAll(`\brestaurant\b`, `\bnear me\b`, `\bopen now\b`, `\bhours\s+(for|of)\b`)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// Classifier runs the two-stage classification pipeline (§4.C).
type Classifier struct {
	cache       *cache.Client
	admin       *adminconfig.Client
	llmClient   *llm.Client
	classifyTTL time.Duration
}

func NewClassifier(cacheClient *cache.Client, admin *adminconfig.Client, llmClient *llm.Client, classifyTTL time.Duration) *Classifier {
	return &Classifier{cache: cacheClient, admin: admin, llmClient: llmClient, classifyTTL: classifyTTL}
}

// Classify produces an (intent, confidence) pair, consulting the cache
// first and falling back through the LLM classifier (if enabled) to the
// keyword classifier.
func (c *Classifier) Classify(ctx context.Context, query string) Classification {
	key := cache.IntentKey(query)

	var cached Classification
	if c.cache.Get(ctx, key, &cached) {
		return cached
	}

	result := c.classifyUncached(ctx, query)
	c.cache.Set(ctx, key, result, c.classifyTTL)
	return result
}

func (c *Classifier) classifyUncached(ctx context.Context, query string) Classification {
	log := observability.LoggerWithTrace(ctx)

	if c.admin != nil && c.llmClient != nil && c.admin.GetBoolFlag(ctx, "enable_llm_intent_classifier", false) {
		if cls, ok := c.classifyWithLLM(ctx, query); ok && cls.Confidence >= 0.6 {
			return cls
		}
		log.Debug().Msg("llm intent classifier unavailable or low confidence, falling back to keywords")
	}

	return c.classifyWithKeywords(ctx, query)
}

func (c *Classifier) classifyWithLLM(ctx context.Context, query string) (Classification, bool) {
	prompt := fmt.Sprintf(
		"Classify the following voice assistant query into exactly one category: "+
			"event_search, news, local_business, general, weather, sports, airports, control, greeting.\n"+
			"Respond with exactly one line: CATEGORY:<name> CONFIDENCE:<0-1>\n\nQuery: %s", query)

	resp, err := c.llmClient.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.1,
		MaxTokens:   32,
		Timeout:     3 * time.Second,
	})
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("llm intent classifier call failed")
		return Classification{}, false
	}

	intent, confidence, ok := parseCategoryConfidence(resp.Content)
	if !ok {
		return Classification{}, false
	}
	return Classification{Intent: intent, Confidence: confidence, Entities: map[string]string{}}, true
}

var categoryLine = regexp.MustCompile(`(?i)CATEGORY:\s*(\w+)\s+CONFIDENCE:\s*([0-9]*\.?[0-9]+)`)

func parseCategoryConfidence(s string) (Intent, float64, bool) {
	m := categoryLine.FindStringSubmatch(s)
	if m == nil {
		return "", 0, false
	}
	conf, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return "", 0, false
	}
	return Intent(strings.ToLower(m[1])), conf, true
}

func (c *Classifier) classifyWithKeywords(ctx context.Context, query string) Classification {
	rules := c.adminRules(ctx)
	if len(rules) > 0 {
		for _, r := range rules {
			for _, p := range r.patterns {
				if p.MatchString(query) {
					return Classification{Intent: r.intent, Confidence: 1.0, Entities: map[string]string{}}
				}
			}
		}
	} else {
		for _, r := range defaultRules {
			for _, p := range r.patterns {
				if p.MatchString(query) {
					return Classification{Intent: r.intent, Confidence: 1.0, Entities: map[string]string{}}
				}
			}
		}
	}
	return Classification{Intent: IntentGeneral, Confidence: 1.0, Entities: map[string]string{}}
}

type compiledRule struct {
	intent   Intent
	patterns []*regexp.Regexp
}

// adminRules compiles admin-configured classification rules. Invalid regexes
// are skipped with a warning rather than failing the whole rule set.
func (c *Classifier) adminRules(ctx context.Context) []compiledRule {
	if c.admin == nil {
		return nil
	}
	rows := c.admin.GetClassificationRules(ctx)
	if len(rows) == 0 {
		return nil
	}
	rules := make([]compiledRule, 0, len(rows))
	for _, row := range rows {
		var patterns []*regexp.Regexp
		for _, raw := range row.Patterns {
			re, err := regexp.Compile(`(?i)` + raw)
			if err != nil {
				observability.LoggerWithTrace(ctx).Warn().Err(err).Str("pattern", raw).Msg("invalid admin classification pattern, skipping")
				continue
			}
			patterns = append(patterns, re)
		}
		if len(patterns) > 0 {
			rules = append(rules, compiledRule{intent: Intent(row.Intent), patterns: patterns})
		}
	}
	return rules
}
