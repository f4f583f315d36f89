package mode

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
BEGIN:VEVENT
UID:abc-123
SUMMARY:Guest stay
DTSTART:20260810T150000Z
DTEND:20260814T110000Z
END:VEVENT
BEGIN:VEVENT
UID:bad-event
SUMMARY:Broken event
DTSTART:20260901T000000Z
DTEND:20260801T000000Z
END:VEVENT
BEGIN:VEVENT
UID:folded-summary
SUMMARY:A long summary that
  continues on the next line
DTSTART:20261001T120000Z
DTEND:20261003T120000Z
END:VEVENT
END:VCALENDAR
`

func TestParseVEvents_NormalisesAndFilters(t *testing.T) {
	events := parseVEvents(context.Background(), sampleICS)

	require.Len(t, events, 2)
	assert.Equal(t, "abc-123", events[0].UID)
	assert.Equal(t, "Guest stay", events[0].Summary)
	assert.Equal(t, time.UTC, events[0].CheckIn.Location())
	assert.True(t, events[0].CheckOut.After(events[0].CheckIn))

	assert.Equal(t, "folded-summary", events[1].UID)
	assert.Equal(t, "A long summary that continues on the next line", events[1].Summary)
}

func TestParseVEvents_EmptyInput(t *testing.T) {
	events := parseVEvents(context.Background(), "")
	assert.Empty(t, events)
}

func TestParseICSTime_Formats(t *testing.T) {
	utc, ok := parseICSTime("20260810T150000Z")
	require.True(t, ok)
	assert.Equal(t, 2026, utc.Year())

	local, ok := parseICSTime("20260810T150000")
	require.True(t, ok)
	assert.Equal(t, time.UTC, local.Location())

	dateOnly, ok := parseICSTime("20260810")
	require.True(t, ok)
	assert.Equal(t, time.August, dateOnly.Month())

	_, ok = parseICSTime("")
	assert.False(t, ok)

	_, ok = parseICSTime("not-a-time")
	assert.False(t, ok)
}
