package mode

import (
	"context"
	"time"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
)

// ConfigFromAdmin builds the cfgFn Service.Run polls on every tick, reading
// Component B's admin-managed inputs (§4.B "Inputs") from feature flags.
// Durations are stored as Go duration strings (e.g. "2h"); an unparseable or
// absent value falls back to the given default. defaultPollInterval is the
// environment-configured poll interval (§6 MODE_POLL_INTERVAL_SECONDS),
// used when the admin service has no override for it.
func ConfigFromAdmin(admin *adminconfig.Client, defaultPollInterval time.Duration) func(ctx context.Context) Config {
	return func(ctx context.Context) Config {
		return Config{
			Enabled:             admin.GetBoolFlag(ctx, "mode.enabled", false),
			ICalURL:             admin.GetStringFlag(ctx, "mode.ical_url", ""),
			PollInterval:        durationFlag(ctx, admin, "mode.poll_interval", defaultPollInterval),
			BufferBeforeCheckin: durationFlag(ctx, admin, "mode.buffer_before_checkin", 2*time.Hour),
			BufferAfterCheckout: durationFlag(ctx, admin, "mode.buffer_after_checkout", time.Hour),
			OverrideTTL:         durationFlag(ctx, admin, "mode.override_ttl", 0),
		}
	}
}

func durationFlag(ctx context.Context, admin *adminconfig.Client, key string, def time.Duration) time.Duration {
	raw := admin.GetStringFlag(ctx, key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
