package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hearth-assist/orchestrator/internal/llm"
	"github.com/hearth-assist/orchestrator/internal/retrieval"
)

// citationRelevanceThreshold is the fraction of a retrieved snippet's
// distinct words that must also appear in the answer before the item is
// cited; when no item reaches it, all passed-in retrieved items are cited
// per §3's Citation fallback rule.
const citationRelevanceThreshold = 0.15

// Synthesiser constructs the with/without-evidence prompt and calls the
// model backend (§4.D stage 4).
type Synthesiser struct {
	llmClient *llm.Client
}

func NewSynthesiser(llmClient *llm.Client) *Synthesiser {
	return &Synthesiser{llmClient: llmClient}
}

type synthesisResult struct {
	answer    string
	citations []Citation
	err       error
}

func (s *Synthesiser) Synthesise(ctx context.Context, query string, retrieved []retrieval.Result, history []HistoryMessage, model string, maxTokens int) synthesisResult {
	var prompt string
	if len(retrieved) > 0 {
		prompt = withEvidencePrompt(query, retrieved, history)
	} else {
		prompt = withoutEvidencePrompt(query, history)
	}

	resp, err := s.llmClient.Complete(ctx, llm.Request{
		Model:       model,
		Messages:    []llm.Message{{Role: "system", Content: systemPrompt}, {Role: "user", Content: prompt}},
		Temperature: 0.3,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return synthesisResult{err: err}
	}

	citations := citeRelevant(resp.Content, retrieved)
	return synthesisResult{answer: strings.TrimSpace(resp.Content), citations: citations}
}

const systemPrompt = "You are a concise voice assistant. Keep answers short enough to speak aloud."

func withEvidencePrompt(query string, retrieved []retrieval.Result, history []HistoryMessage) string {
	var b strings.Builder
	b.WriteString(historyBlock(history))
	b.WriteString("Answer the user's question using ONLY the context below. ")
	b.WriteString("Cite sources implicitly by relying only on the provided facts. ")
	b.WriteString("Do not state any specific fact that is not present in the context.\n\n")
	b.WriteString("Context:\n")
	for i, r := range retrieved {
		fmt.Fprintf(&b, "%d. [%s] %s: %s\n", i+1, r.Source, r.Title, r.Snippet)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", query)
	return b.String()
}

func withoutEvidencePrompt(query string, history []HistoryMessage) string {
	var b strings.Builder
	b.WriteString(historyBlock(history))
	b.WriteString("You have no current information to answer this question. ")
	b.WriteString("Acknowledge that you lack up-to-date information, and suggest where the user could look instead. ")
	b.WriteString("Do NOT state any specific date, time, name, monetary amount, or phone number.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", query)
	return b.String()
}

func historyBlock(history []HistoryMessage) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, h := range history {
		fmt.Fprintf(&b, "%s: %s\n", h.Role, h.Text)
	}
	b.WriteString("\n")
	return b.String()
}

// citeRelevant implements the Citation heuristic (§3): cite items whose
// snippet shares enough vocabulary with the answer, falling back to citing
// every passed-in item when the heuristic can't distinguish any of them.
func citeRelevant(answer string, retrieved []retrieval.Result) []Citation {
	if len(retrieved) == 0 {
		return nil
	}
	now := time.Now().UTC()
	answerWords := wordSet(answer)

	var cited []Citation
	for _, r := range retrieved {
		if overlapRatio(wordSet(r.Snippet), answerWords) >= citationRelevanceThreshold {
			cited = append(cited, Citation{Source: r.Source, Title: r.Title, URL: r.URL, RetrievedAt: now})
		}
	}
	if len(cited) > 0 {
		return cited
	}

	all := make([]Citation, 0, len(retrieved))
	for _, r := range retrieved {
		all = append(all, Citation{Source: r.Source, Title: r.Title, URL: r.URL, RetrievedAt: now})
	}
	return all
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	matches := 0
	for w := range a {
		if _, ok := b[w]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}
