package orchestrator

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
	"github.com/hearth-assist/orchestrator/internal/llm"
	"github.com/hearth-assist/orchestrator/internal/observability"
)

// specificFactPatterns detects dates, times, monetary amounts, and phone
// numbers — the categories the without-evidence synthesis prompt is
// explicitly instructed never to emit.
var specificFactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*(am|pm)?\b`),                       // times
	regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}(st|nd|rd|th)?\b`), // dates
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),                             // dates
	regexp.MustCompile(`\$\s?\d+(\.\d{2})?\b`),                                    // money
	regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),                       // phone numbers
}

// Validator implements the multi-layered anti-hallucination gate (§4.D
// stage 5).
type Validator struct {
	admin     *adminconfig.Client
	llmClient *llm.Client
}

func NewValidator(admin *adminconfig.Client, llmClient *llm.Client) *Validator {
	return &Validator{admin: admin, llmClient: llmClient}
}

// Validate runs pattern detection, the support check, and (if enabled) the
// LLM fact-check, and combines them into a single Validation verdict.
func (v *Validator) Validate(ctx context.Context, answer string, retrievedEmpty bool) Validation {
	hasSpecificFacts := false
	var details []string
	for _, p := range specificFactPatterns {
		if p.MatchString(answer) {
			hasSpecificFacts = true
			details = append(details, "matched pattern: "+p.String())
		}
	}

	if hasSpecificFacts && retrievedEmpty {
		return Validation{
			Passed:  false,
			Reason:  "answer contains specific fact patterns with no supporting evidence",
			Details: details,
		}
	}

	if v.admin != nil && v.llmClient != nil && v.admin.GetBoolFlag(ctx, "enable_llm_fact_check", false) {
		if verdict, ok := v.llmFactCheck(ctx, answer); ok && verdict.ContainsHallucinations {
			return Validation{
				Passed:  false,
				Reason:  verdict.Reason,
				Details: verdict.SpecificClaims,
			}
		}
	}

	return Validation{Passed: true}
}

type factCheckVerdict struct {
	ContainsHallucinations bool     `json:"contains_hallucinations"`
	Reason                 string   `json:"reason"`
	SpecificClaims         []string `json:"specific_claims"`
}

func (v *Validator) llmFactCheck(ctx context.Context, answer string) (factCheckVerdict, bool) {
	prompt := "Does this answer contain claims not supported by the provided context? " +
		"Reply with strict JSON only: {\"contains_hallucinations\": bool, \"reason\": string, \"specific_claims\": [string]}\n\nAnswer: " + answer

	resp, err := v.llmClient.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.1,
		MaxTokens:   256,
		Timeout:     3 * time.Second,
	})
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("llm fact-check call failed")
		return factCheckVerdict{}, false
	}

	var verdict factCheckVerdict
	if err := json.Unmarshal([]byte(extractJSONObject(resp.Content)), &verdict); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("llm fact-check reply not strict JSON, failing closed")
		// Fail closed: an unparseable fact-check reply is treated as the
		// answer failing validation, not passing by default.
		return factCheckVerdict{ContainsHallucinations: true, Reason: "fact-check reply unparseable"}, true
	}
	return verdict, true
}

// extractJSONObject returns the substring from the first '{' to the last
// '}', tolerating a model wrapping its JSON reply in prose or code fences.
func extractJSONObject(s string) string {
	start := -1
	end := -1
	for i, r := range s {
		if r == '{' && start == -1 {
			start = i
		}
		if r == '}' {
			end = i
		}
	}
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
