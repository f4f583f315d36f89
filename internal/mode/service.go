package mode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
	"github.com/hearth-assist/orchestrator/internal/observability"
)

// OverrideSource supplies active manual overrides. The admin service owns
// persistence; this package only reads.
type OverrideSource interface {
	ActiveOverrides(ctx context.Context, now time.Time) ([]Override, error)
}

// Service runs the background reconciliation loop and publishes the current
// Snapshot for lock-free concurrent reads.
type Service struct {
	cfgFn      func(ctx context.Context) Config
	overrides  OverrideSource
	httpClient *http.Client

	current atomic.Pointer[Snapshot]

	consecutiveFailures int
	lastEvents          atomic.Pointer[[]Event]
}

// NewService builds a Service. cfgFn is polled for the live Config on every
// tick, since admin-managed settings can change without a restart.
// overrides may be nil, in which case step 4 of the algorithm never finds an
// active override.
func NewService(cfgFn func(ctx context.Context) Config, overrides OverrideSource, httpClient *http.Client) *Service {
	if httpClient == nil {
		httpClient = observability.NewHTTPClient(nil)
	}
	s := &Service{cfgFn: cfgFn, overrides: overrides, httpClient: httpClient}
	// Safe default: guest until the first poll completes (§4.B "Safe default").
	s.current.Store(&Snapshot{Mode: Guest, ComputedAt: time.Time{}})
	noEvents := []Event{}
	s.lastEvents.Store(&noEvents)
	return s
}

// Current returns the live snapshot. O(1), lock-free.
func (s *Service) Current() Snapshot {
	return *s.current.Load()
}

// RecentEvents returns the events parsed on the most recent successful poll,
// for the diagnostics endpoint.
func (s *Service) RecentEvents() []Event {
	return *s.lastEvents.Load()
}

// Run polls forever on cfg.PollInterval until ctx is cancelled. The first
// reconciliation happens immediately, not after the first tick.
func (s *Service) Run(ctx context.Context) {
	s.reconcile(ctx)

	cfg := s.cfgFn(ctx)
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 600 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reconcile(ctx)
			if next := s.cfgFn(ctx).PollInterval; next > 0 && next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func (s *Service) reconcile(ctx context.Context) {
	log := observability.LoggerWithTrace(ctx)
	cfg := s.cfgFn(ctx)
	now := time.Now().UTC()

	// Step 1.
	if !cfg.Enabled || cfg.ICalURL == "" {
		s.publish(Snapshot{Mode: Owner, ComputedAt: now})
		return
	}

	// Step 2-3.
	raw, err := fetchICal(ctx, s.httpClient, cfg.ICalURL)
	if err != nil {
		s.consecutiveFailures++
		if s.consecutiveFailures >= 3 {
			log.Warn().Err(err).Int("consecutive_failures", s.consecutiveFailures).Msg("ical fetch failing repeatedly, keeping previous mode snapshot")
		} else {
			log.Debug().Err(err).Msg("ical fetch failed, keeping previous mode snapshot")
		}
		return
	}
	s.consecutiveFailures = 0

	events := parseVEvents(ctx, raw)
	s.lastEvents.Store(&events)

	// Step 4.
	if s.overrides != nil {
		actives, err := s.overrides.ActiveOverrides(ctx, now)
		if err != nil {
			log.Warn().Err(err).Msg("override lookup failed, falling back to event-derived mode")
		} else if ov, ok := highestPriority(actives); ok {
			s.publish(Snapshot{
				Mode:             ov.Mode,
				ComputedAt:       now,
				SourceEventsHash: hashEvents(events),
			})
			return
		}
	}

	// Step 5.
	mode, active := resolveFromEvents(events, now, cfg.BufferBeforeCheckin, cfg.BufferAfterCheckout)
	s.publish(Snapshot{
		Mode:             mode,
		ActiveEvent:      active,
		ComputedAt:       now,
		SourceEventsHash: hashEvents(events),
	})
}

func highestPriority(actives []Override) (Override, bool) {
	if len(actives) == 0 {
		return Override{}, false
	}
	best := actives[0]
	for _, o := range actives[1:] {
		if o.Priority > best.Priority {
			best = o
		}
	}
	return best, true
}

func resolveFromEvents(events []Event, now time.Time, bufferBefore, bufferAfter time.Duration) (Mode, *ActiveEvent) {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CheckIn.Before(sorted[j].CheckIn) })

	for _, ev := range sorted {
		windowStart := ev.CheckIn.Add(-bufferBefore)
		windowEnd := ev.CheckOut.Add(bufferAfter)
		if !now.Before(windowStart) && !now.After(windowEnd) {
			return Guest, &ActiveEvent{CheckIn: ev.CheckIn, CheckOut: ev.CheckOut, SourceUID: ev.UID}
		}
	}
	return Owner, nil
}

func (s *Service) publish(snap Snapshot) {
	s.current.Store(&snap)
}

// ActiveOverrides filters ov for the set active at now: not expired, subject
// to a (possibly nil) override TTL ceiling applied by the caller/admin
// service at write time.
func ActiveOverrides(overrides []Override, now time.Time) []Override {
	var active []Override
	for _, o := range overrides {
		if o.ExpiresAt != nil && o.ExpiresAt.Before(now) {
			continue
		}
		active = append(active, o)
	}
	return active
}

func hashEvents(events []Event) string {
	h := sha256.New()
	for _, ev := range events {
		fmt.Fprintf(h, "%s|%s|%s|", ev.UID, ev.CheckIn.Format(time.RFC3339), ev.CheckOut.Format(time.RFC3339))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// AdminPolicySource resolves admin-persisted policy rows. Implemented by
// *adminconfig.Client.
type AdminPolicySource interface {
	GetPolicy(ctx context.Context, intent string) (adminconfig.PolicyRow, bool)
}

// PolicyFor projects the current mode and the admin policy row for intent
// into a Policy (§4.B "Policy projection"). On an unreachable admin service
// it fails open: allowed defaults to true so a transient admin outage
// doesn't block every request, while the mode-derived restriction (guest vs
// owner) always still applies.
func (s *Service) PolicyFor(ctx context.Context, intent string, admin AdminPolicySource) Policy {
	snap := s.Current()

	row, ok := admin.GetPolicy(ctx, intent)
	policy := Policy{Allowed: true}
	if ok {
		policy = Policy{
			Allowed:                  row.Allowed,
			RateLimitPerMinute:       row.RateLimitPerMinute,
			AllowedIntents:           row.AllowedIntents,
			RestrictedEntityPatterns: row.RestrictedEntityPatterns,
			AllowedDeviceDomains:     row.AllowedDeviceDomains,
		}
	}

	if snap.Mode == Guest && !ok {
		// No admin policy row reachable while in guest mode: fail closed on
		// the side that actually matters (don't grant device control to an
		// unauthenticated guest just because the admin service is down).
		policy.Allowed = intent != "control"
	}
	return policy
}
