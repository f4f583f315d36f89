package mode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_DefaultsToGuestBeforeFirstPoll(t *testing.T) {
	cfgFn := func(ctx context.Context) Config { return Config{} }
	svc := NewService(cfgFn, nil, nil)
	assert.Equal(t, Guest, svc.Current().Mode)
}

func TestReconcile_DisabledYieldsOwner(t *testing.T) {
	cfgFn := func(ctx context.Context) Config { return Config{Enabled: false} }
	svc := NewService(cfgFn, nil, nil)
	svc.reconcile(context.Background())
	assert.Equal(t, Owner, svc.Current().Mode)
}

func TestReconcile_FetchFailureKeepsPreviousSnapshot(t *testing.T) {
	cfgFn := func(ctx context.Context) Config {
		return Config{Enabled: true, ICalURL: "http://127.0.0.1:0/cal.ics"}
	}
	svc := NewService(cfgFn, nil, &http.Client{Timeout: 50 * time.Millisecond})
	before := svc.Current()
	svc.reconcile(context.Background())
	after := svc.Current()
	assert.Equal(t, before.Mode, after.Mode)
	assert.Equal(t, 1, svc.consecutiveFailures)
}

func icsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
}

func TestReconcile_ActiveEventYieldsGuestWithBuffers(t *testing.T) {
	now := time.Now().UTC()
	checkin := now.Add(-1 * time.Hour)
	checkout := now.Add(1 * time.Hour)

	ics := "BEGIN:VCALENDAR\nBEGIN:VEVENT\nUID:live-1\nSUMMARY:Live\nDTSTART:" +
		checkin.Format("20060102T150405Z") + "\nDTEND:" + checkout.Format("20060102T150405Z") +
		"\nEND:VEVENT\nEND:VCALENDAR\n"

	srv := icsServer(t, ics)
	defer srv.Close()

	cfgFn := func(ctx context.Context) Config {
		return Config{Enabled: true, ICalURL: srv.URL, BufferBeforeCheckin: time.Hour, BufferAfterCheckout: time.Hour}
	}
	svc := NewService(cfgFn, nil, srv.Client())
	svc.reconcile(context.Background())

	snap := svc.Current()
	assert.Equal(t, Guest, snap.Mode)
	require.NotNil(t, snap.ActiveEvent)
	assert.Equal(t, "live-1", snap.ActiveEvent.SourceUID)
}

func TestReconcile_NoActiveEventYieldsOwner(t *testing.T) {
	past := time.Now().UTC().Add(-72 * time.Hour)
	pastEnd := past.Add(time.Hour)
	ics := "BEGIN:VCALENDAR\nBEGIN:VEVENT\nUID:past-1\nSUMMARY:Past\nDTSTART:" +
		past.Format("20060102T150405Z") + "\nDTEND:" + pastEnd.Format("20060102T150405Z") +
		"\nEND:VEVENT\nEND:VCALENDAR\n"

	srv := icsServer(t, ics)
	defer srv.Close()

	cfgFn := func(ctx context.Context) Config {
		return Config{Enabled: true, ICalURL: srv.URL, BufferBeforeCheckin: 0, BufferAfterCheckout: 0}
	}
	svc := NewService(cfgFn, nil, srv.Client())
	svc.reconcile(context.Background())

	snap := svc.Current()
	assert.Equal(t, Owner, snap.Mode)
	assert.Nil(t, snap.ActiveEvent)
}

type fakeOverrideSource struct {
	overrides []Override
	err       error
}

func (f fakeOverrideSource) ActiveOverrides(ctx context.Context, now time.Time) ([]Override, error) {
	return f.overrides, f.err
}

func TestReconcile_OverrideTakesPrecedenceOverEvents(t *testing.T) {
	now := time.Now().UTC()
	checkin := now.Add(-1 * time.Hour)
	checkout := now.Add(1 * time.Hour)
	ics := "BEGIN:VCALENDAR\nBEGIN:VEVENT\nUID:live-1\nSUMMARY:Live\nDTSTART:" +
		checkin.Format("20060102T150405Z") + "\nDTEND:" + checkout.Format("20060102T150405Z") +
		"\nEND:VEVENT\nEND:VCALENDAR\n"
	srv := icsServer(t, ics)
	defer srv.Close()

	overrides := fakeOverrideSource{overrides: []Override{
		{Mode: Owner, Priority: 10, Source: "admin"},
	}}

	cfgFn := func(ctx context.Context) Config {
		return Config{Enabled: true, ICalURL: srv.URL, BufferBeforeCheckin: time.Hour, BufferAfterCheckout: time.Hour}
	}
	svc := NewService(cfgFn, overrides, srv.Client())
	svc.reconcile(context.Background())

	assert.Equal(t, Owner, svc.Current().Mode)
}

func TestHighestPriority(t *testing.T) {
	_, ok := highestPriority(nil)
	assert.False(t, ok)

	best, ok := highestPriority([]Override{
		{Mode: Guest, Priority: 1},
		{Mode: Owner, Priority: 5},
		{Mode: Guest, Priority: 3},
	})
	require.True(t, ok)
	assert.Equal(t, Owner, best.Mode)
}

func TestActiveOverrides_FiltersExpired(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	overrides := []Override{
		{Mode: Guest, ExpiresAt: &past},
		{Mode: Owner, ExpiresAt: &future},
		{Mode: Owner, ExpiresAt: nil},
	}

	active := ActiveOverrides(overrides, now)
	assert.Len(t, active, 2)
}

type fakePolicySource struct {
	row map[string]adminconfig.PolicyRow
}

func (f fakePolicySource) GetPolicy(ctx context.Context, intent string) (adminconfig.PolicyRow, bool) {
	row, ok := f.row[intent]
	return row, ok
}

func TestPolicyFor_UsesAdminRowWhenAvailable(t *testing.T) {
	cfgFn := func(ctx context.Context) Config { return Config{} }
	svc := NewService(cfgFn, nil, nil)

	admin := fakePolicySource{row: map[string]adminconfig.PolicyRow{
		"weather": {Allowed: true, RateLimitPerMinute: 30},
	}}

	policy := svc.PolicyFor(context.Background(), "weather", admin)
	assert.True(t, policy.Allowed)
	assert.Equal(t, 30, policy.RateLimitPerMinute)
}

func TestPolicyFor_GuestModeFailsClosedOnControlWithoutAdminRow(t *testing.T) {
	cfgFn := func(ctx context.Context) Config { return Config{} }
	svc := NewService(cfgFn, nil, nil) // defaults to Guest before first poll

	admin := fakePolicySource{row: map[string]adminconfig.PolicyRow{}}

	policy := svc.PolicyFor(context.Background(), "control", admin)
	assert.False(t, policy.Allowed)

	policy = svc.PolicyFor(context.Background(), "weather", admin)
	assert.True(t, policy.Allowed)
}
