package mode

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hearth-assist/orchestrator/internal/observability"
)

// No ICS/iCalendar parsing library appears anywhere in the dependency
// surface this core draws from; this is a deliberate, narrow hand-rolled
// VEVENT reader rather than a full RFC 5545 implementation; it parses only
// the UID/SUMMARY/DTSTART/DTEND fields this component needs.
const icsTimeLayoutUTC = "20060102T150405Z"
const icsTimeLayoutLocal = "20060102T150405"
const icsDateLayout = "20060102"

// fetchICal retrieves the raw calendar body from url with a 30s timeout
// (§4.B step 2).
func fetchICal(ctx context.Context, client *http.Client, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build ical request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch ical: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch ical: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("read ical body: %w", err)
	}
	return string(body), nil
}

// parseVEvents extracts VEVENT blocks and normalises DTSTART/DTEND to UTC.
// Events with DTEND before DTSTART are dropped with a logged warning (spec
// boundary behaviour). Lines are unfolded per RFC 5545 §3.1 (a line starting
// with a space or tab continues the previous line).
func parseVEvents(ctx context.Context, raw string) []Event {
	lines := unfold(raw)

	var events []Event
	var cur map[string]string
	inEvent := false

	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		switch {
		case line == "BEGIN:VEVENT":
			inEvent = true
			cur = make(map[string]string)
		case line == "END:VEVENT":
			if inEvent {
				if ev, ok := buildEvent(ctx, cur); ok {
					events = append(events, ev)
				}
			}
			inEvent = false
			cur = nil
		case inEvent:
			name, value, ok := splitICSLine(line)
			if ok {
				cur[name] = value
			}
		}
	}
	return events
}

func unfold(raw string) []string {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var out []string
	for scanner.Scan() {
		line := scanner.Text()
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(out) > 0 {
			out[len(out)-1] += strings.TrimPrefix(strings.TrimPrefix(line, " "), "\t")
			continue
		}
		out = append(out, line)
	}
	return out
}

// splitICSLine splits "NAME;PARAM=x:VALUE" into ("NAME", "VALUE").
func splitICSLine(line string) (name, value string, ok bool) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return "", "", false
	}
	key := line[:colon]
	value = line[colon+1:]
	if semi := strings.IndexByte(key, ';'); semi >= 0 {
		key = key[:semi]
	}
	return strings.ToUpper(strings.TrimSpace(key)), value, true
}

func buildEvent(ctx context.Context, fields map[string]string) (Event, bool) {
	start, ok := parseICSTime(fields["DTSTART"])
	if !ok {
		return Event{}, false
	}
	end, ok := parseICSTime(fields["DTEND"])
	if !ok {
		return Event{}, false
	}
	if end.Before(start) {
		observability.LoggerWithTrace(ctx).Warn().
			Str("uid", fields["UID"]).
			Time("dtstart", start).
			Time("dtend", end).
			Msg("ignoring VEVENT with DTEND before DTSTART")
		return Event{}, false
	}
	return Event{
		UID:      fields["UID"],
		Summary:  fields["SUMMARY"],
		CheckIn:  start,
		CheckOut: end,
	}, true
}

func parseICSTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(icsTimeLayoutUTC, v); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(icsTimeLayoutLocal, v); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(icsDateLayout, v); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
