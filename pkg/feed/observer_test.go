package feed

import (
	"context"
	"testing"
	"time"

	"github.com/smartreplyhq/smartreply/pkg/bus"
	"github.com/smartreplyhq/smartreply/pkg/platform"
)

// scriptedAdapter returns canned detections so observer behavior can
// be exercised without a page tree.
type scriptedAdapter struct {
	contact string
}

func (a *scriptedAdapter) Platform() string { return "whatsapp" }

func (a *scriptedAdapter) DetectMessage(node *platform.Node) *platform.MessageData {
	if node == nil || !node.HasClass("msg") {
		return nil
	}
	return &platform.MessageData{
		Text:      node.Text,
		ContactID: a.contact,
		Incoming:  !node.HasClass("out"),
		Timestamp: time.Now(),
	}
}

func (a *scriptedAdapter) DetectTyping(node *platform.Node) *platform.TypingData {
	if node == nil || !node.HasClass("typing") {
		return nil
	}
	return &platform.TypingData{ContactID: a.contact, Timestamp: time.Now()}
}

func (a *scriptedAdapter) CurrentContactID() string { return a.contact }

func (a *scriptedAdapter) InsertText(string) bool { return true }

func msgNode(text string) *platform.Node {
	return &platform.Node{Tag: "div", Classes: []string{"msg"}, Text: text}
}

func drainEvents(t *testing.T, eb *bus.EventBus, wait time.Duration) []bus.Event {
	t.Helper()
	var events []bus.Event
	for {
		ctx, cancel := context.WithTimeout(context.Background(), wait)
		ev, ok := eb.ConsumeEvent(ctx)
		cancel()
		if !ok {
			return events
		}
		events = append(events, ev)
	}
}

func countType(events []bus.Event, typ bus.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestObserver_EmitsMessageAndContactChange(t *testing.T) {
	eb := bus.NewEventBus()
	defer eb.Close()
	adapter := &scriptedAdapter{contact: "c_alice"}
	o := NewObserver(adapter, eb)
	o.Start()
	defer o.Stop()

	o.Process(Mutation{Added: []*platform.Node{msgNode("hello")}})

	events := drainEvents(t, eb, 100*time.Millisecond)
	if countType(events, bus.EventMessageReceived) != 1 {
		t.Fatalf("expected 1 message event, got %v", events)
	}
	// First sight of a contact primes the active conversation.
	if countType(events, bus.EventContactChanged) != 1 {
		t.Fatalf("expected 1 contact change, got %v", events)
	}
	if events[0].Direction != bus.DirectionIn {
		t.Fatalf("expected inbound direction, got %s", events[0].Direction)
	}
}

func TestObserver_DeduplicatesWithinWindow(t *testing.T) {
	eb := bus.NewEventBus()
	defer eb.Close()
	adapter := &scriptedAdapter{contact: "c_alice"}
	o := NewObserver(adapter, eb, WithDedupWindow(5*time.Second))
	o.Start()
	defer o.Stop()

	o.Process(Mutation{Added: []*platform.Node{msgNode("same text")}})
	o.Process(Mutation{Added: []*platform.Node{msgNode("same text")}})

	events := drainEvents(t, eb, 100*time.Millisecond)
	if got := countType(events, bus.EventMessageReceived); got != 1 {
		t.Fatalf("expected duplicate collapsed to 1 event, got %d", got)
	}
}

func TestObserver_EmitsBothBeyondWindow(t *testing.T) {
	eb := bus.NewEventBus()
	defer eb.Close()
	adapter := &scriptedAdapter{contact: "c_alice"}

	current := time.Now()
	o := NewObserver(adapter, eb,
		WithDedupWindow(5*time.Second),
		WithClock(func() time.Time { return current }))
	o.Start()
	defer o.Stop()

	o.Process(Mutation{Added: []*platform.Node{msgNode("same text")}})
	current = current.Add(6 * time.Second)
	o.Process(Mutation{Added: []*platform.Node{msgNode("same text")}})

	events := drainEvents(t, eb, 100*time.Millisecond)
	if got := countType(events, bus.EventMessageReceived); got != 2 {
		t.Fatalf("expected both events beyond window, got %d", got)
	}
}

func TestObserver_DistinctTextsNotDeduplicated(t *testing.T) {
	eb := bus.NewEventBus()
	defer eb.Close()
	adapter := &scriptedAdapter{contact: "c_alice"}
	o := NewObserver(adapter, eb)
	o.Start()
	defer o.Stop()

	o.Process(Mutation{Added: []*platform.Node{msgNode("first"), msgNode("second")}})

	events := drainEvents(t, eb, 100*time.Millisecond)
	if got := countType(events, bus.EventMessageReceived); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}
}

func TestObserver_TypingDebounce(t *testing.T) {
	eb := bus.NewEventBus()
	defer eb.Close()
	adapter := &scriptedAdapter{contact: "c_alice"}
	o := NewObserver(adapter, eb, WithTypingDebounce(80*time.Millisecond))
	o.Start()
	defer o.Stop()

	typing := &platform.Node{Tag: "div", Classes: []string{"typing"}}
	// Rapid flicker: three signals inside the debounce interval.
	o.Process(Mutation{Added: []*platform.Node{typing}})
	o.Process(Mutation{AttributeTargets: []*platform.Node{typing}})
	o.Process(Mutation{AttributeTargets: []*platform.Node{typing}})

	events := drainEvents(t, eb, 200*time.Millisecond)
	if got := countType(events, bus.EventTypingDetected); got != 1 {
		t.Fatalf("expected flicker coalesced to 1 typing event, got %d", got)
	}
}

func TestObserver_StopClearsPendingTyping(t *testing.T) {
	eb := bus.NewEventBus()
	defer eb.Close()
	adapter := &scriptedAdapter{contact: "c_alice"}
	o := NewObserver(adapter, eb, WithTypingDebounce(80*time.Millisecond))
	o.Start()

	o.Process(Mutation{Added: []*platform.Node{{Tag: "div", Classes: []string{"typing"}}}})
	o.Stop()

	events := drainEvents(t, eb, 200*time.Millisecond)
	if got := countType(events, bus.EventTypingDetected); got != 0 {
		t.Fatalf("typing event emitted after stop: %d", got)
	}
}

func TestObserver_ContactSwitchEmitsChange(t *testing.T) {
	eb := bus.NewEventBus()
	defer eb.Close()
	adapter := &scriptedAdapter{contact: "c_alice"}
	o := NewObserver(adapter, eb)
	o.Start()
	defer o.Stop()

	o.Process(Mutation{Added: []*platform.Node{msgNode("hi")}})
	adapter.contact = "c_bob"
	o.Process(Mutation{Added: []*platform.Node{msgNode("hey there")}})

	events := drainEvents(t, eb, 100*time.Millisecond)
	if got := countType(events, bus.EventContactChanged); got != 2 {
		t.Fatalf("expected 2 contact changes (prime + switch), got %d", got)
	}
	last := events[len(events)-1]
	if last.Type != bus.EventContactChanged || last.ContactID != "c_bob" {
		t.Fatalf("expected trailing change to c_bob, got %+v", last)
	}
}

func TestObserver_ProcessIgnoredWhenStopped(t *testing.T) {
	eb := bus.NewEventBus()
	defer eb.Close()
	adapter := &scriptedAdapter{contact: "c_alice"}
	o := NewObserver(adapter, eb)

	o.Process(Mutation{Added: []*platform.Node{msgNode("hello")}})
	if events := drainEvents(t, eb, 50*time.Millisecond); len(events) != 0 {
		t.Fatalf("events emitted before Start: %v", events)
	}
}
