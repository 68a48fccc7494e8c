package platform

import (
	"net/url"
	"strings"
	"time"

	"github.com/smartreplyhq/smartreply/pkg/privacy"
)

// Page is the readiness/query surface supplied by the host
// collaborator. The production host backs it with the live document;
// tests back it with a synthetic tree.
type Page interface {
	URL() string
	Title() string
	Root() *Node
	// SetInput writes text into the active composer element.
	// Returns false when no input-capable element exists.
	SetInput(text string) bool
}

type MessageData struct {
	Text      string
	ContactID string
	Incoming  bool
	Timestamp time.Time
}

type TypingData struct {
	ContactID string
	Timestamp time.Time
}

// Adapter is the fixed capability set every platform variant
// implements. Detection methods return nil for "no signal"; callers
// never treat nil as an error.
type Adapter interface {
	Platform() string
	DetectMessage(node *Node) *MessageData
	DetectTyping(node *Node) *TypingData
	CurrentContactID() string
	InsertText(text string) bool
}

// tableAdapter is the single adapter implementation, parameterized by
// a platform's selector table. Selected once by the Resolver.
type tableAdapter struct {
	table SelectorTable
	page  Page
	now   func() time.Time
}

func newTableAdapter(table SelectorTable, page Page, now func() time.Time) *tableAdapter {
	if now == nil {
		now = time.Now
	}
	return &tableAdapter{table: table, page: page, now: now}
}

func (a *tableAdapter) Platform() string {
	return a.table.Name
}

func (a *tableAdapter) DetectMessage(node *Node) *MessageData {
	if node == nil || !node.HasAnyClass(a.table.MessageClasses) {
		return nil
	}

	text := ""
	if textNode := node.FindByClass(a.table.TextClasses); textNode != nil {
		text = textNode.TextContent()
	} else {
		text = node.TextContent()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ts := a.now()
	if timeNode := node.FindByClass(a.table.TimeClasses); timeNode != nil {
		if parsed, ok := ParseTimestamp(timeNode.TextContent(), a.now()); ok {
			ts = parsed
		}
		// Strip the rendered time from the extracted text when the
		// text node wrapped it.
		text = strings.TrimSpace(strings.TrimSuffix(text, timeNode.TextContent()))
		if text == "" {
			return nil
		}
	}

	contactID := a.CurrentContactID()
	if contactID == "" {
		return nil
	}

	return &MessageData{
		Text:      text,
		ContactID: contactID,
		Incoming:  !node.HasAnyClass(a.table.OutboundClasses),
		Timestamp: ts,
	}
}

func (a *tableAdapter) DetectTyping(node *Node) *TypingData {
	if node == nil {
		return nil
	}

	match := node.HasAnyClass(a.table.TypingClasses)
	if !match {
		for attr, substr := range a.table.TypingAttrs {
			if v := node.Attr(attr); v != "" && strings.Contains(strings.ToLower(v), substr) {
				match = true
				break
			}
		}
	}
	if !match {
		return nil
	}

	contactID := a.CurrentContactID()
	if contactID == "" {
		return nil
	}
	return &TypingData{ContactID: contactID, Timestamp: a.now()}
}

// Generic path segments that identify a view, not a contact.
var genericPathSegments = map[string]bool{
	"": true, "t": true, "chat": true, "direct": true, "inbox": true, "new": true,
}

// CurrentContactID resolves the active conversation identifier:
// URL path segment, then page title, then the labeled contact header.
// The raw value is hashed before it leaves the adapter.
func (a *tableAdapter) CurrentContactID() string {
	if raw := a.contactFromURL(); raw != "" {
		return privacy.HashContactID(a.table.Name + ":" + raw)
	}
	if raw := a.contactFromTitle(); raw != "" {
		return privacy.HashContactID(a.table.Name + ":" + raw)
	}
	if header := a.page.Root().FindByClass(a.table.HeaderClasses); header != nil {
		if raw := header.TextContent(); raw != "" {
			return privacy.HashContactID(a.table.Name + ":" + raw)
		}
	}
	return ""
}

func (a *tableAdapter) contactFromURL() string {
	u, err := url.Parse(a.page.URL())
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := strings.TrimSpace(segments[i])
		if !genericPathSegments[strings.ToLower(seg)] {
			return seg
		}
	}
	return ""
}

func (a *tableAdapter) contactFromTitle() string {
	title := strings.TrimSpace(a.page.Title())
	if title == "" {
		return ""
	}
	for _, placeholder := range a.table.TitlePlaceholders {
		if strings.EqualFold(title, placeholder) {
			return ""
		}
	}
	// Unread-count prefixes like "(2) Alice" are rendering noise.
	if idx := strings.Index(title, ") "); strings.HasPrefix(title, "(") && idx > 0 {
		title = strings.TrimSpace(title[idx+2:])
	}
	return title
}

func (a *tableAdapter) InsertText(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return a.page.SetInput(text)
}
