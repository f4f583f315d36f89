package retrieval

import (
	"sort"
	"strings"
)

// titleSimilarityThreshold is the normalised-title similarity above which
// two same-source results are folded together during dedup (§4.C step 1).
const titleSimilarityThreshold = 0.92

// confirmationBoostPerSource and confirmationBoostCap implement the
// cross-source confirmation boost (§4.C step 2).
const confirmationBoostPerSource = 0.1
const confirmationBoostCap = 0.2

// defaultWeights is the per-intent, per-provider weight table (§4.C step 3),
// overridable via admin config in a full deployment. Providers not listed
// for an intent default to weight 1.0 (neutral).
var defaultWeights = map[Intent]map[string]float64{
	IntentEventSearch: {
		"event-api-1":    1.0,
		"event-api-2":    0.9,
		"general-web-1":  0.5,
		"general-web-2":  0.5,
	},
	IntentGeneral: {
		"general-web-1": 1.0,
		"general-web-2": 0.9,
	},
	IntentNews: {
		"general-web-1": 1.0,
		"general-web-2": 0.9,
	},
	IntentLocalBusiness: {
		"general-web-1": 1.0,
		"general-web-2": 0.9,
	},
}

// Fuse turns N per-provider result lists into one ranked, deduplicated,
// truncated list (§4.C "Fusion and ranking").
func Fuse(intent Intent, perProvider [][]Result, topK int) []Result {
	type indexed struct {
		result       Result
		providerIdx  int
		withinIdx    int
	}

	var flat []indexed
	for pIdx, list := range perProvider {
		for wIdx, r := range list {
			flat = append(flat, indexed{result: r, providerIdx: pIdx, withinIdx: wIdx})
		}
	}

	// Step 1: dedupe same-source, near-identical-title results, keeping the
	// higher-confidence one.
	deduped := make([]indexed, 0, len(flat))
	for _, item := range flat {
		merged := false
		for i, existing := range deduped {
			if existing.result.Source == item.result.Source &&
				titleSimilarity(existing.result.Title, item.result.Title) >= titleSimilarityThreshold {
				if item.result.Confidence > existing.result.Confidence {
					deduped[i] = item
				}
				merged = true
				break
			}
		}
		if !merged {
			deduped = append(deduped, item)
		}
	}

	// Step 2: cross-source confirmation boost, grouped by normalised title
	// across all sources.
	groupCounts := map[string]map[string]struct{}{}
	for _, item := range deduped {
		key := normalizeTitle(item.result.Title)
		if groupCounts[key] == nil {
			groupCounts[key] = map[string]struct{}{}
		}
		groupCounts[key][item.result.Source] = struct{}{}
	}

	weights := defaultWeights[intent]

	scored := make([]indexed, len(deduped))
	copy(scored, deduped)
	finalScores := make([]float64, len(scored))
	for i, item := range scored {
		key := normalizeTitle(item.result.Title)
		distinctSources := len(groupCounts[key])
		boost := confirmationBoostPerSource * float64(distinctSources-1)
		if boost > confirmationBoostCap {
			boost = confirmationBoostCap
		}
		if boost < 0 {
			boost = 0
		}

		weight := 1.0
		if weights != nil {
			if w, ok := weights[item.result.Source]; ok {
				weight = w
			}
		}

		finalScores[i] = (item.result.Confidence + boost) * weight
	}

	// Step 4: stable sort descending by weighted confidence, ties broken by
	// original ordering (provider index, then within-provider index).
	order := make([]int, len(scored))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if finalScores[ia] != finalScores[ib] {
			return finalScores[ia] > finalScores[ib]
		}
		if scored[ia].providerIdx != scored[ib].providerIdx {
			return scored[ia].providerIdx < scored[ib].providerIdx
		}
		return scored[ia].withinIdx < scored[ib].withinIdx
	})

	// Step 5: truncate to top_k.
	if topK <= 0 {
		topK = 5
	}
	out := make([]Result, 0, topK)
	for _, idx := range order {
		if len(out) >= topK {
			break
		}
		r := scored[idx].result
		r.Confidence = finalScores[idx]
		out = append(out, r)
	}
	return out
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// titleSimilarity returns a similarity ratio in [0,1] derived from Levenshtein
// edit distance over normalised titles. No fuzzy-string-matching library
// appears anywhere in the retrieved corpus; this is a narrow, self-contained
// metric rather than a general-purpose string-distance dependency.
func titleSimilarity(a, b string) float64 {
	na, nb := normalizeTitle(a), normalizeTitle(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0
	}
	dist := levenshtein(na, nb)
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
