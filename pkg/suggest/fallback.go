package suggest

import (
	"context"
	"math/rand"
	"strings"
	"sync"
)

// patternMatcher is the last fallback tier: deterministic keyword
// buckets with a randomized pick per bucket. It never fails.
type patternMatcher struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newPatternMatcher(seed int64) *patternMatcher {
	return &patternMatcher{rng: rand.New(rand.NewSource(seed))}
}

type bucket struct {
	keywords  []string
	responses []string
}

var buckets = []bucket{
	{
		keywords: []string{"hi", "hello", "hey", "good morning", "good evening", "what's up"},
		responses: []string{
			"Hey! How are you?",
			"Hi there!",
			"Hello! Good to hear from you.",
		},
	},
	{
		keywords: []string{"thanks", "thank you", "thx", "appreciate"},
		responses: []string{
			"You're welcome!",
			"No problem at all.",
			"Happy to help!",
		},
	},
	{
		keywords: []string{"bye", "goodbye", "see you", "later", "good night"},
		responses: []string{
			"See you later!",
			"Take care!",
			"Talk soon!",
		},
	},
}

var shortMessageResponses = []string{
	"Got it!",
	"Sounds good.",
	"Okay!",
}

var defaultResponses = []string{
	"Thanks for letting me know.",
	"That makes sense.",
	"I'll get back to you on that.",
	"Interesting, tell me more.",
}

func (m *patternMatcher) Name() string { return "local" }

// Complete never returns an error; the orchestrator relies on that.
func (m *patternMatcher) Complete(_ context.Context, prompt Prompt) (string, error) {
	return m.match(prompt.LastMessage), nil
}

func (m *patternMatcher) match(message string) string {
	lower := strings.ToLower(strings.TrimSpace(message))

	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				return m.pick(b.responses)
			}
		}
	}
	if len(lower) > 0 && len(lower) < 20 {
		return m.pick(shortMessageResponses)
	}
	return m.pick(defaultResponses)
}

func (m *patternMatcher) pick(responses []string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return responses[m.rng.Intn(len(responses))]
}
