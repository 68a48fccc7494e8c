package bus

import "time"

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

type EventType string

const (
	EventMessageReceived EventType = "message_received"
	EventTypingDetected  EventType = "typing_detected"
	EventContactChanged  EventType = "contact_changed"
)

// Event is a normalized detection event. ContactID is always the
// one-way hash produced by the adapter, never a raw identifier.
type Event struct {
	Type      EventType
	ContactID string
	Platform  string
	Text      string
	Direction Direction
	Timestamp time.Time
}

type UIEventKind string

const (
	UIShown    UIEventKind = "suggestions_shown"
	UISelected UIEventKind = "suggestion_selected"
	UIRejected UIEventKind = "suggestion_rejected"
	UINotice   UIEventKind = "notice"
)

// UIEvent is delivered to the popup/settings collaborator. Notices
// carry Message only; suggestion events carry the suggestion texts.
type UIEvent struct {
	Kind         UIEventKind
	ContactID    string
	SuggestionID string
	Texts        []string
	Message      string
	Timestamp    time.Time
}
