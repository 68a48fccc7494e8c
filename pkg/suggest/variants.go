package suggest

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/smartreplyhq/smartreply/pkg/contacts"
)

var softeners = []string{
	"Sure thing, ",
	"Of course! ",
	"Absolutely, ",
	"No worries, ",
}

var engagers = []string{
	"What do you think?",
	"How does that sound?",
	"Does that work for you?",
}

var engagingEmojis = []string{"🙂", "😊", "👍"}

var variantRng = struct {
	mu  sync.Mutex
	rng *rand.Rand
}{rng: rand.New(rand.NewSource(1))}

// SeedVariants re-seeds the variant randomizer; tests use a fixed
// seed for reproducible picks.
func SeedVariants(seed int64) {
	variantRng.mu.Lock()
	defer variantRng.mu.Unlock()
	variantRng.rng = rand.New(rand.NewSource(seed))
}

func pickVariant(options []string) string {
	variantRng.mu.Lock()
	defer variantRng.mu.Unlock()
	return options[variantRng.rng.Intn(len(options))]
}

// expandVariants derives the three presented suggestions from one
// underlying response: direct (unmodified), polite (softened prefix),
// engaging (question prompt, plus an emoji for emoji-heavy contacts).
func expandVariants(base string, style contacts.StyleProfile) []Suggestion {
	polite := pickVariant(softeners) + lowerFirst(base)

	engaging := strings.TrimRight(base, ".!")
	if style.EmojiRate > emojiThreshold {
		engaging += " " + pickVariant(engagingEmojis)
	}
	engaging += ". " + pickVariant(engagers)

	return []Suggestion{
		{ID: uuid.NewString(), Text: base, Kind: KindDirect},
		{ID: uuid.NewString(), Text: polite, Kind: KindDelayed},
		{ID: uuid.NewString(), Text: engaging, Kind: KindEngaging},
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	first := strings.ToLower(string(runes[0]))
	return first + string(runes[1:])
}
