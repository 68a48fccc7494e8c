package platform

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	relativePattern = regexp.MustCompile(`(?i)^(\d+)\s*(m|min|mins|minute|minutes|h|hr|hrs|hour|hours|d|day|days)\b`)
	absolutePattern = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(am|pm)?$`)
)

// ParseTimestamp resolves a platform-rendered timestamp string against
// now. Supports relative forms ("5 min", "2h", "1 day") and absolute
// wall-clock forms ("14:05", "9:42 PM"). Absolute times that land in
// the future are corrected back one day: the surface only renders
// times that already happened. Returns false when the string matches
// no known form.
func ParseTimestamp(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if m := relativePattern.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		switch strings.ToLower(m[2])[0] {
		case 'm':
			return now.Add(-time.Duration(n) * time.Minute), true
		case 'h':
			return now.Add(-time.Duration(n) * time.Hour), true
		case 'd':
			return now.AddDate(0, 0, -n), true
		}
		return time.Time{}, false
	}

	if strings.EqualFold(raw, "now") || strings.EqualFold(raw, "just now") {
		return now, true
	}

	if m := absolutePattern.FindStringSubmatch(raw); m != nil {
		hour, err := strconv.Atoi(m[1])
		if err != nil || hour > 23 {
			return time.Time{}, false
		}
		minute, err := strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return time.Time{}, false
		}
		switch strings.ToLower(m[3]) {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}

		ts := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if ts.After(now) {
			ts = ts.AddDate(0, 0, -1)
		}
		return ts, true
	}

	return time.Time{}, false
}
