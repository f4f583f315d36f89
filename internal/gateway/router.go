package gateway

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/hearth-assist/orchestrator/internal/llm"
	"github.com/hearth-assist/orchestrator/internal/observability"
)

// Destination is which backend a chat request should go to.
type Destination string

const (
	DestinationOrchestrator Destination = "orchestrator"
	DestinationPassthrough  Destination = "passthrough"
)

// routerPrompt is the one-shot classification prompt (§4.E step 1): a small,
// cheap model decides orchestrator vs passthrough with a tight token budget.
const routerPrompt = "Reply with exactly one word, either \"orchestrator\" or \"passthrough\". " +
	"Say \"orchestrator\" if the message asks about weather, sports scores, flights, local businesses, " +
	"news, events, or asks to control a smart home device. Say \"passthrough\" for everything else " +
	"(general conversation, coding, writing, math).\n\nMessage: "

var orchestratorKeywords = regexp.MustCompile(
	`(?i)\b(weather|forecast|temperature|score|game|flight|airport|gate|concert|tickets?|` +
		`news|headlines?|restaurant|near me|open now|turn (on|off)|lock|unlock|dim|thermostat)\b`)

// Router decides routing for one chat request. A nil llmClient skips
// straight to the keyword fallback (§4.E step 1's documented degrade path).
type Router struct {
	llmClient *llm.Client
	model     string
}

func NewRouter(llmClient *llm.Client, model string) *Router {
	return &Router{llmClient: llmClient, model: model}
}

// Route picks a Destination for text, preferring the LLM classifier and
// falling back to keywords on any failure or unparseable reply.
func (r *Router) Route(ctx context.Context, text string) Destination {
	if r.llmClient != nil {
		if dest, ok := r.routeWithLLM(ctx, text); ok {
			return dest
		}
		observability.LoggerWithTrace(ctx).Debug().Msg("router classifier unavailable, falling back to keywords")
	}
	return r.routeWithKeywords(text)
}

func (r *Router) routeWithLLM(ctx context.Context, text string) (Destination, bool) {
	resp, err := r.llmClient.Complete(ctx, llm.Request{
		Model:       r.model,
		Messages:    []llm.Message{{Role: "user", Content: routerPrompt + text}},
		Temperature: 0.1,
		MaxTokens:   10,
		Timeout:     2 * time.Second,
	})
	if err != nil {
		return "", false
	}
	return parseDestination(resp.Content)
}

func parseDestination(s string) (Destination, bool) {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(lower, "orchestrator"):
		return DestinationOrchestrator, true
	case strings.Contains(lower, "passthrough"):
		return DestinationPassthrough, true
	default:
		return "", false
	}
}

func (r *Router) routeWithKeywords(text string) Destination {
	if orchestratorKeywords.MatchString(text) {
		return DestinationOrchestrator
	}
	return DestinationPassthrough
}
