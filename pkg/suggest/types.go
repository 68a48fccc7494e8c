package suggest

import (
	"strings"

	"github.com/smartreplyhq/smartreply/pkg/bus"
	"github.com/smartreplyhq/smartreply/pkg/contacts"
)

type Kind string

const (
	KindDirect   Kind = "direct"
	KindDelayed  Kind = "delayed"
	KindEngaging Kind = "engaging"
)

// Request carries everything needed to build one suggestion. Message
// and Context are already sanitized by the caller before any provider
// sees them.
type Request struct {
	ContactID string
	Message   string
	Context   []contacts.Entry
	Style     contacts.StyleProfile
}

type Suggestion struct {
	ID   string
	Text string
	Kind Kind
}

// Prompt is the provider-neutral prompt material. Providers that take
// structured history use Turns; single-string providers use Flatten.
type Prompt struct {
	LastMessage string
	Turns       []Turn
	Formal      bool
	Emoji       bool
}

type Turn struct {
	Role string // "contact" or "me"
	Text string
}

const (
	formalityThreshold = 0.7
	emojiThreshold     = 0.5
	maxContextTurns    = 5
)

// BuildPrompt derives the prompt material from a request, applying
// the style thresholds.
func BuildPrompt(req Request) Prompt {
	p := Prompt{
		LastMessage: req.Message,
		Formal:      req.Style.Formality > formalityThreshold,
		Emoji:       req.Style.EmojiRate > emojiThreshold,
	}

	ctx := req.Context
	if len(ctx) > maxContextTurns {
		ctx = ctx[len(ctx)-maxContextTurns:]
	}
	for _, e := range ctx {
		role := "contact"
		if e.Direction == bus.DirectionOut {
			role = "me"
		}
		p.Turns = append(p.Turns, Turn{Role: role, Text: e.Text})
	}
	return p
}

func (p Prompt) styleDirective() string {
	tone := "casual"
	if p.Formal {
		tone = "formal"
	}
	emoji := "no emoji"
	if p.Emoji {
		emoji = "emoji welcome"
	}
	return tone + ", " + emoji
}

// Flatten renders the prompt as a single instruction string for
// providers without structured history support.
func (p Prompt) Flatten() string {
	var b strings.Builder
	b.WriteString("Suggest a short reply to the last message in this chat.\n")
	b.WriteString("Style: " + p.styleDirective() + ".\n")
	if len(p.Turns) > 0 {
		b.WriteString("Recent context:\n")
		for _, t := range p.Turns {
			b.WriteString(t.Role + ": " + t.Text + "\n")
		}
	}
	b.WriteString("Last message: " + p.LastMessage + "\n")
	b.WriteString("Reply:")
	return b.String()
}
