package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
	"github.com/hearth-assist/orchestrator/internal/cache"
	"github.com/hearth-assist/orchestrator/internal/mode"
	"github.com/hearth-assist/orchestrator/internal/observability"
	"github.com/hearth-assist/orchestrator/internal/retrieval"
	"github.com/hearth-assist/orchestrator/internal/telemetrybus"
)

// Pipeline runs the five-stage orchestration graph (§4.D) for one request at
// a time; callers create one Request per call to Process.
type Pipeline struct {
	classifier  *retrieval.Classifier
	engine      *retrieval.Engine
	synth       *Synthesiser
	validator   *Validator
	sessions    *SessionStore
	modeSvc     *mode.Service
	admin       *adminconfig.Client
	cache       *cache.Client
	telemetry   *telemetrybus.Publisher

	deadline        time.Duration
	historyInjected int
}

func NewPipeline(
	classifier *retrieval.Classifier,
	engine *retrieval.Engine,
	synth *Synthesiser,
	validator *Validator,
	sessions *SessionStore,
	modeSvc *mode.Service,
	admin *adminconfig.Client,
	cacheClient *cache.Client,
	telemetry *telemetrybus.Publisher,
	deadline time.Duration,
	historyInjected int,
) *Pipeline {
	return &Pipeline{
		classifier: classifier, engine: engine, synth: synth, validator: validator,
		sessions: sessions, modeSvc: modeSvc, admin: admin, cache: cacheClient,
		telemetry: telemetry, deadline: deadline, historyInjected: historyInjected,
	}
}

// Process runs req through the pipeline and returns the final Response. It
// never returns an error: every internal failure degrades to a safe
// fallback answer inside the Response itself (§4.D failure semantics).
func (p *Pipeline) Process(ctx context.Context, req Request) Response {
	start := time.Now()
	if p.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.deadline)
		defer cancel()
	}

	state := newState()
	log := observability.LoggerWithTrace(ctx)

	var history []HistoryMessage
	if req.SessionID != "" {
		history = RecentHistory(p.sessions.Load(ctx, req.SessionID), p.historyInjected)
	}

	// Stage 1: classify.
	timed(state, "classify", func() {
		cls := p.classifier.Classify(ctx, req.Query)
		state.Intent = cls.Intent
		state.Confidence = cls.Confidence
		if cls.Entities != nil {
			state.Entities = cls.Entities
		}
	})

	snap := mode.Snapshot{Mode: mode.Guest}
	if p.modeSvc != nil {
		snap = p.modeSvc.Current()
	}
	state.Mode = snap.Mode

	policy := mode.Policy{Allowed: true}
	if p.modeSvc != nil && p.admin != nil {
		policy = p.modeSvc.PolicyFor(ctx, string(state.Intent), p.admin)
	}

	if !policy.Allowed {
		state.Answer = policyBlockedAnswer(state.Intent)
		state.Validation = Validation{Passed: true}
		state.Metadata["policy_blocked"] = true
		return p.finalise(ctx, req, state, start)
	}

	if ctx.Err() != nil {
		return p.timeoutResponse(ctx, req, state, start)
	}

	switch state.Intent {
	case retrieval.IntentControl:
		state.Answer = controlAcknowledgement(state.Entities)
		state.Validation = Validation{Passed: true}
		return p.finalise(ctx, req, state, start)
	case retrieval.IntentGreeting:
		state.Answer = "Hello! How can I help?"
		state.Validation = Validation{Passed: true}
		return p.finalise(ctx, req, state, start)
	}

	// Stage 2: route_info.
	var tier Tier
	timed(state, "route_info", func() {
		tier = SelectTier(ctx, p.admin, req.Query, history)
	})

	// Stage 3: retrieve.
	timed(state, "retrieve", func() {
		state.Retrieved = p.engine.Retrieve(ctx, state.Intent, req.Query, state.Entities["location"])
	})
	if len(state.Retrieved) == 0 {
		state.Metadata["data_source"] = "none"
	} else {
		state.Metadata["data_source"] = "retrieved"
	}

	if ctx.Err() != nil {
		return p.timeoutResponse(ctx, req, state, start)
	}

	// Stage 4: synthesise.
	model := ModelForTier(ctx, p.admin, tier)
	maxTokens := MaxTokensForTier(tier)
	var synthRes synthesisResult
	timed(state, "synthesise", func() {
		synthRes = p.synth.Synthesise(ctx, req.Query, state.Retrieved, history, model, maxTokens)
	})

	if synthRes.err != nil {
		log.Warn().Err(synthRes.err).Msg("synthesis failed")
		state.Metadata["synthesis_error"] = classifyLLMError(synthRes.err)
		state.Answer = safeFallbackAnswer(req.Query)
		return p.finalise(ctx, req, state, start)
	}
	state.Answer = synthRes.answer
	state.Citations = synthRes.citations

	if ctx.Err() != nil {
		return p.timeoutResponse(ctx, req, state, start)
	}

	// Stage 5: validate.
	timed(state, "validate", func() {
		state.Validation = p.validator.Validate(ctx, state.Answer, len(state.Retrieved) == 0)
	})

	return p.finalise(ctx, req, state, start)
}

// finalise implements §4.D stage 6: apply the safe-fallback substitution on
// a failed validation, append the conversation turn, publish telemetry, and
// build the Response. Idempotent per request_id via the distributed cache.
func (p *Pipeline) finalise(ctx context.Context, req Request, state *State, start time.Time) Response {
	if !state.Validation.Passed && state.Answer != "" && state.Metadata["policy_blocked"] == nil {
		state.Answer = safeFallbackAnswer(req.Query)
		state.Citations = nil
	}

	state.NodeTimings["total"] = time.Since(start).Seconds()

	if req.RequestID != "" && p.cache != nil {
		key := cache.IdempotencyKey(req.RequestID)
		if _, seen := p.cache.GetString(ctx, key); seen {
			state.Metadata["duplicate_request"] = true
		} else {
			p.cache.SetString(ctx, key, "1", 10*time.Minute)
			if req.SessionID != "" {
				p.sessions.AppendTurn(ctx, req.SessionID, req.Query, state.Answer)
			}
		}
	} else if req.SessionID != "" {
		p.sessions.AppendTurn(ctx, req.SessionID, req.Query, state.Answer)
	}

	if p.telemetry != nil {
		p.telemetry.Publish(ctx, telemetrybus.TelemetryEvent{
			RequestID:       req.RequestID,
			SessionID:       req.SessionID,
			Intent:          string(state.Intent),
			Confidence:      state.Confidence,
			Mode:            string(state.Mode),
			ValidationOK:    state.Validation.Passed,
			ValidationWhy:   state.Validation.Reason,
			PolicyBlocked:   state.Metadata["policy_blocked"] == true,
			TimedOut:        state.Metadata["timeout"] == true,
			NodeTimings:     state.NodeTimings,
			RetrievedCount:  len(state.Retrieved),
			FinalisedAtUnix: time.Now().Unix(),
		})
	}

	return Response{
		Answer:     state.Answer,
		Citations:  state.Citations,
		Intent:     state.Intent,
		Confidence: state.Confidence,
		Mode:       state.Mode,
		Validation: state.Validation,
		Metadata:   withNodeTimings(state),
	}
}

func withNodeTimings(state *State) map[string]any {
	out := make(map[string]any, len(state.Metadata)+1)
	for k, v := range state.Metadata {
		out[k] = v
	}
	out["node_timings"] = state.NodeTimings
	return out
}

func (p *Pipeline) timeoutResponse(ctx context.Context, req Request, state *State, start time.Time) Response {
	state.Metadata["timeout"] = true
	state.Answer = safeFallbackAnswer(req.Query)
	state.Validation = Validation{Passed: true}
	return p.finalise(ctx, req, state, start)
}

func timed(state *State, stage string, fn func()) {
	t0 := time.Now()
	fn()
	state.NodeTimings[stage] = time.Since(t0).Seconds()
}

func safeFallbackAnswer(query string) string {
	return fmt.Sprintf("I don't have current information to answer that accurately. I recommend checking reliable sources about %s.", paraphraseTopic(query))
}

func paraphraseTopic(query string) string {
	if len(query) > 60 {
		return query[:60] + "..."
	}
	if query == "" {
		return "this topic"
	}
	return query
}

func policyBlockedAnswer(intent retrieval.Intent) string {
	return fmt.Sprintf("I'm not able to help with that %s request right now.", intent)
}

func controlAcknowledgement(entities map[string]string) string {
	return "Okay, I've sent that request along."
}

// classifyLLMError buckets a model-backend error into a small set of kinds
// for metadata.synthesis_error, mirroring the teacher's transient-vs-permanent
// substring heuristic.
func classifyLLMError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case containsAny(msg, "deadline exceeded", "context canceled", "timeout"):
		return "timeout"
	case containsAny(msg, "no choices returned", "unparseable", "decode"):
		return "unparseable_output"
	default:
		return "backend_error"
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
