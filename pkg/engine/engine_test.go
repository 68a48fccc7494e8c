package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartreplyhq/smartreply/pkg/bus"
	"github.com/smartreplyhq/smartreply/pkg/config"
	"github.com/smartreplyhq/smartreply/pkg/contacts"
	"github.com/smartreplyhq/smartreply/pkg/platform"
	"github.com/smartreplyhq/smartreply/pkg/privacy"
	"github.com/smartreplyhq/smartreply/pkg/storage"
	"github.com/smartreplyhq/smartreply/pkg/suggest"
)

type fakeAdapter struct {
	inserted []string
}

func (a *fakeAdapter) Platform() string { return "whatsapp" }

func (a *fakeAdapter) DetectMessage(*platform.Node) *platform.MessageData { return nil }

func (a *fakeAdapter) DetectTyping(*platform.Node) *platform.TypingData { return nil }

func (a *fakeAdapter) CurrentContactID() string { return "c_alice" }

func (a *fakeAdapter) InsertText(text string) bool {
	a.inserted = append(a.inserted, text)
	return true
}

func newTestEngine(t *testing.T, cfg *config.Config) (*Engine, *bus.EventBus, *fakeAdapter) {
	t.Helper()
	kv, err := storage.NewStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("new kv: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	key, _ := privacy.GenerateKey()
	cipher, err := privacy.NewCipher(key)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	store, err := contacts.NewStore(kv, cipher)
	if err != nil {
		t.Fatalf("new contact store: %v", err)
	}

	// No external providers: the local matcher answers immediately
	// and deterministically enough for assertions.
	orchestrator := suggest.NewOrchestrator(nil, suggest.WithFallbackSeed(3))

	eb := bus.NewEventBus()
	t.Cleanup(eb.Close)
	adapter := &fakeAdapter{}
	return New(cfg, eb, store, orchestrator, adapter), eb, adapter
}

func runEngine(t *testing.T, e *Engine) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	return cancel
}

func waitShown(t *testing.T, eb *bus.EventBus, wait time.Duration) (bus.UIEvent, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	for {
		ev, ok := eb.SubscribeUI(ctx)
		if !ok {
			return bus.UIEvent{}, false
		}
		if ev.Kind == bus.UIShown {
			return ev, true
		}
	}
}

func TestEngine_TypingProducesSuggestions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Suggestions.ResponseDelayMs = 0
	e, eb, _ := newTestEngine(t, cfg)
	cancel := runEngine(t, e)
	defer cancel()

	now := time.Now()
	eb.PublishEvent(bus.Event{Type: bus.EventContactChanged, ContactID: "c_alice", Platform: "whatsapp", Timestamp: now})
	eb.PublishEvent(bus.Event{Type: bus.EventMessageReceived, ContactID: "c_alice", Platform: "whatsapp",
		Text: "thanks for the help!", Direction: bus.DirectionIn, Timestamp: now})
	eb.PublishEvent(bus.Event{Type: bus.EventTypingDetected, ContactID: "c_alice", Platform: "whatsapp", Timestamp: now})

	shown, ok := waitShown(t, eb, 2*time.Second)
	if !ok {
		t.Fatalf("no suggestions shown")
	}
	if shown.ContactID != "c_alice" {
		t.Fatalf("suggestions for wrong contact: %s", shown.ContactID)
	}
	if len(shown.Texts) != 3 {
		t.Fatalf("expected 3 suggestions, got %v", shown.Texts)
	}
	for _, text := range shown.Texts {
		if text == "" {
			t.Fatalf("empty suggestion shown: %v", shown.Texts)
		}
	}
}

func TestEngine_DisabledProducesNothing(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Suggestions.Enabled = false
	cfg.Suggestions.ResponseDelayMs = 0
	e, eb, _ := newTestEngine(t, cfg)
	cancel := runEngine(t, e)
	defer cancel()

	now := time.Now()
	eb.PublishEvent(bus.Event{Type: bus.EventContactChanged, ContactID: "c_alice", Platform: "whatsapp", Timestamp: now})
	eb.PublishEvent(bus.Event{Type: bus.EventTypingDetected, ContactID: "c_alice", Platform: "whatsapp", Timestamp: now})

	if _, ok := waitShown(t, eb, 300*time.Millisecond); ok {
		t.Fatalf("suggestions shown while disabled")
	}
}

func TestEngine_TypingForInactiveContactIgnored(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Suggestions.ResponseDelayMs = 0
	e, eb, _ := newTestEngine(t, cfg)
	cancel := runEngine(t, e)
	defer cancel()

	now := time.Now()
	eb.PublishEvent(bus.Event{Type: bus.EventContactChanged, ContactID: "c_alice", Platform: "whatsapp", Timestamp: now})
	eb.PublishEvent(bus.Event{Type: bus.EventTypingDetected, ContactID: "c_bob", Platform: "whatsapp", Timestamp: now})

	if _, ok := waitShown(t, eb, 300*time.Millisecond); ok {
		t.Fatalf("suggestions shown for inactive contact")
	}
}

func TestEngine_StaleResultDiscardedAfterContactSwitch(t *testing.T) {
	cfg := config.DefaultConfig()
	// Delay keeps the request for the previous contact in flight
	// while the switch happens.
	cfg.Suggestions.ResponseDelayMs = 200
	e, eb, _ := newTestEngine(t, cfg)
	cancel := runEngine(t, e)
	defer cancel()

	now := time.Now()
	eb.PublishEvent(bus.Event{Type: bus.EventContactChanged, ContactID: "c_prev", Platform: "whatsapp", Timestamp: now})
	eb.PublishEvent(bus.Event{Type: bus.EventTypingDetected, ContactID: "c_prev", Platform: "whatsapp", Timestamp: now})
	time.Sleep(50 * time.Millisecond)
	eb.PublishEvent(bus.Event{Type: bus.EventContactChanged, ContactID: "c_next", Platform: "whatsapp", Timestamp: now})

	if ev, ok := waitShown(t, eb, 600*time.Millisecond); ok {
		t.Fatalf("stale suggestion for previous contact shown: %+v", ev)
	}
}

func TestEngine_SelectInsertsAndRecords(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Suggestions.ResponseDelayMs = 0
	e, eb, adapter := newTestEngine(t, cfg)
	cancel := runEngine(t, e)
	defer cancel()

	ctx := context.Background()
	now := time.Now()
	eb.PublishEvent(bus.Event{Type: bus.EventContactChanged, ContactID: "c_alice", Platform: "whatsapp", Timestamp: now})
	eb.PublishEvent(bus.Event{Type: bus.EventTypingDetected, ContactID: "c_alice", Platform: "whatsapp", Timestamp: now})

	if _, ok := waitShown(t, eb, 2*time.Second); !ok {
		t.Fatalf("no suggestions shown")
	}

	contactID, suggestions := e.Current()
	if contactID != "c_alice" || len(suggestions) == 0 {
		t.Fatalf("no current suggestion set: %s %v", contactID, suggestions)
	}
	if !e.Select(ctx, suggestions[0].ID) {
		t.Fatalf("select failed")
	}
	if len(adapter.inserted) != 1 || adapter.inserted[0] != suggestions[0].Text {
		t.Fatalf("selected text not inserted: %v", adapter.inserted)
	}
	if e.Select(ctx, "nonexistent-id") {
		t.Fatalf("select of unknown id should fail")
	}
}

func TestEngine_MaxSuggestionsApplied(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Suggestions.ResponseDelayMs = 0
	e, eb, _ := newTestEngine(t, cfg)
	cancel := runEngine(t, e)
	defer cancel()

	e.ApplySettings(config.Settings{Enabled: true, MaxSuggestions: 1, ResponseDelayMs: 0})

	now := time.Now()
	eb.PublishEvent(bus.Event{Type: bus.EventContactChanged, ContactID: "c_alice", Platform: "whatsapp", Timestamp: now})
	eb.PublishEvent(bus.Event{Type: bus.EventTypingDetected, ContactID: "c_alice", Platform: "whatsapp", Timestamp: now})

	shown, ok := waitShown(t, eb, 2*time.Second)
	if !ok {
		t.Fatalf("no suggestions shown")
	}
	if len(shown.Texts) != 1 {
		t.Fatalf("max suggestions not applied: %v", shown.Texts)
	}
}
