package contacts

import (
	"strings"
	"unicode"
)

// StyleProfile is the evolving per-contact style signature. Both
// rates live in [0,1] and move by incremental exponential moving
// average, never full recomputation.
type StyleProfile struct {
	Formality float64 `json:"formality"`
	EmojiRate float64 `json:"emoji_rate"`
}

const emaAlpha = 0.3

func DefaultStyle() StyleProfile {
	return StyleProfile{Formality: 0.5, EmojiRate: 0}
}

func (s *StyleProfile) observe(text string) {
	s.Formality = ema(s.Formality, formalityScore(text))
	s.EmojiRate = ema(s.EmojiRate, emojiScore(text))
}

func ema(prev, sample float64) float64 {
	return clamp01(prev + emaAlpha*(sample-prev))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var casualMarkers = []string{
	"lol", "omg", "btw", "idk", "imo", "tbh", "gonna", "wanna",
	"gotta", "lmao", "yeah", "yep", "nope", "hey", "sup", "u", "r", "ur",
}

// formalityScore estimates one message's formality in [0,1]. Crude on
// purpose: the EMA smooths it across the conversation.
func formalityScore(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0.5
	}

	score := 0.5

	runes := []rune(trimmed)
	if unicode.IsUpper(runes[0]) {
		score += 0.15
	}
	switch runes[len(runes)-1] {
	case '.', ';', ':':
		score += 0.15
	case '!':
		score -= 0.05
	}
	if len(runes) > 80 {
		score += 0.1
	} else if len(runes) < 10 {
		score -= 0.1
	}

	lower := strings.ToLower(trimmed)
	for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		for _, marker := range casualMarkers {
			if word == marker {
				score -= 0.15
			}
		}
	}
	if emojiScore(text) > 0 {
		score -= 0.1
	}

	return clamp01(score)
}

// emojiScore is 1 when the message contains at least one emoji rune.
func emojiScore(text string) float64 {
	for _, r := range text {
		if isEmoji(r) {
			return 1
		}
	}
	return 0
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r == 0x2764: // heart
		return true
	}
	return false
}
