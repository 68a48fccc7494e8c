package privacy

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Fields stripped outright before a payload may leave the process.
var deniedFields = []string{
	"contactId", "contact_id", "phone", "phoneNumber", "email",
	"fullName", "full_name", "platform", "username", "address",
}

type scrubRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Ordered: URLs before names so hostnames are not partially renamed,
// phones before addresses so street numbers survive intact.
var scrubRules = []scrubRule{
	{regexp.MustCompile(`\+?\d{1,2}[\s.-]?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`), "[PHONE]"},
	{regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), "[EMAIL]"},
	{regexp.MustCompile(`https?://[^\s]+`), "[URL]"},
	{regexp.MustCompile(`(?i)\b(james|mary|john|patricia|robert|jennifer|michael|linda|david|elizabeth|william|barbara|richard|susan|joseph|jessica|thomas|sarah|charles|karen|daniel|nancy|matthew|lisa|anthony|emma|mark|olivia|steven|sophia)\b`), "[NAME]"},
	{regexp.MustCompile(`(?i)\b\d{1,5}\s+\w+(\s\w+)?\s+(street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|court|ct)\b\.?`), "[ADDRESS]"},
}

// ScrubText applies the PII substitutions in order and returns the
// cleaned string.
func ScrubText(text string) string {
	for _, rule := range scrubRules {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	return text
}

// Sanitize returns a copy of payload safe for external transmission:
// denied fields removed, the contact name replaced by its hash, and
// every string value scrubbed. The copy is tagged with a privacy
// level and sanitization timestamp.
func Sanitize(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+2)

	for k, v := range payload {
		if isDeniedField(k) {
			continue
		}
		if k == "name" || k == "contactName" {
			if s, ok := v.(string); ok {
				out[k] = HashContactID(s)
				continue
			}
		}
		switch val := v.(type) {
		case string:
			out[k] = ScrubText(val)
		case []string:
			cleaned := make([]string, len(val))
			for i, s := range val {
				cleaned[i] = ScrubText(s)
			}
			out[k] = cleaned
		default:
			out[k] = v
		}
	}

	out["privacyLevel"] = string(classify(payload))
	out["sanitizedAt"] = time.Now().UTC().Format(time.RFC3339)
	return out
}

// ContainsPII reports whether any scrub pattern matches the
// JSON-serialized payload.
func ContainsPII(data any) bool {
	serialized, err := json.Marshal(data)
	if err != nil {
		return true
	}
	text := string(serialized)
	for _, rule := range scrubRules {
		if rule.pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// classify picks a conservative default level: PII presence wins,
// then payload size.
func classify(payload map[string]any) Level {
	if ContainsPII(payload) {
		return LevelHigh
	}
	serialized, err := json.Marshal(payload)
	if err != nil || len(serialized) > 2048 {
		return LevelMedium
	}
	return LevelLow
}

func isDeniedField(key string) bool {
	for _, f := range deniedFields {
		if strings.EqualFold(f, key) {
			return true
		}
	}
	return false
}
