package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smartreplyhq/smartreply/pkg/bus"
	"github.com/smartreplyhq/smartreply/pkg/config"
	"github.com/smartreplyhq/smartreply/pkg/contacts"
	"github.com/smartreplyhq/smartreply/pkg/logger"
	"github.com/smartreplyhq/smartreply/pkg/platform"
	"github.com/smartreplyhq/smartreply/pkg/suggest"
)

// Engine consumes normalized detection events, maintains per-contact
// state, and turns typing activity into suggestions. It is the single
// logical writer for contact state; suggestion generation happens off
// the event loop and re-validates relevance before any side effect.
type Engine struct {
	cfg          *config.Config
	events       *bus.EventBus
	store        *contacts.Store
	orchestrator *suggest.Orchestrator
	adapter      platform.Adapter

	running atomic.Bool

	mu      sync.Mutex
	current currentSet
}

// currentSet is the most recently shown suggestion set, kept for
// outcome reporting and insertion.
type currentSet struct {
	contactID   string
	suggestions []suggest.Suggestion
}

func New(cfg *config.Config, events *bus.EventBus, store *contacts.Store, orchestrator *suggest.Orchestrator, adapter platform.Adapter) *Engine {
	return &Engine{
		cfg:          cfg,
		events:       events,
		store:        store,
		orchestrator: orchestrator,
		adapter:      adapter,
	}
}

// Run processes events until ctx is done. Events are handled in
// delivery order; only provider calls leave the loop.
func (e *Engine) Run(ctx context.Context) {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	defer e.running.Store(false)

	logger.InfoCF("engine", "Pipeline started", map[string]any{
		"platform": e.adapter.Platform(),
	})

	for {
		ev, ok := e.events.ConsumeEvent(ctx)
		if !ok {
			logger.InfoC("engine", "Pipeline stopped")
			return
		}
		e.handle(ctx, ev)
	}
}

func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

func (e *Engine) handle(ctx context.Context, ev bus.Event) {
	switch ev.Type {
	case bus.EventMessageReceived:
		entry := contacts.Entry{Direction: ev.Direction, Text: ev.Text, Timestamp: ev.Timestamp}
		if err := e.store.Update(ctx, ev.ContactID, ev.Platform, entry); err != nil {
			logger.WarnCF("engine", "Contact update failed", map[string]any{
				"contact": ev.ContactID,
				"error":   err.Error(),
			})
		}
	case bus.EventContactChanged:
		// Switching the active contact also invalidates any pending
		// suggestion request for the previous one: its result fails
		// the relevance check at delivery time.
		e.store.SetActive(ctx, ev.ContactID)
	case bus.EventTypingDetected:
		e.onTyping(ctx, ev)
	}
}

func (e *Engine) onTyping(ctx context.Context, ev bus.Event) {
	settings := e.cfg.Snapshot()
	if !settings.Enabled {
		return
	}
	if ev.ContactID != e.store.ActiveContact() {
		logger.DebugCF("engine", "Typing for inactive contact ignored", map[string]any{
			"contact": ev.ContactID,
		})
		return
	}

	profile, err := e.store.GetOrCreate(ctx, ev.ContactID, ev.Platform)
	if err != nil {
		logger.WarnCF("engine", "Profile load failed", map[string]any{"error": err.Error()})
		return
	}
	window := e.store.Context()

	req := suggest.Request{
		ContactID: ev.ContactID,
		Message:   lastInbound(window),
		Context:   window,
		Style:     profile.Style,
	}

	// Generation is asynchronous: a pending request for one contact
	// never blocks detection events for another.
	go e.generate(ctx, req, settings)
}

func (e *Engine) generate(ctx context.Context, req suggest.Request, settings config.Settings) {
	if settings.ResponseDelayMs > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(settings.ResponseDelayMs) * time.Millisecond):
		}
	}

	suggestions := e.orchestrator.Suggest(ctx, req)
	if max := settings.MaxSuggestions; max > 0 && len(suggestions) > max {
		suggestions = suggestions[:max]
	}

	// Relevance check at delivery time: the user may have switched
	// conversations while the request was in flight.
	if e.store.ActiveContact() != req.ContactID {
		logger.DebugCF("engine", "Stale suggestion discarded", map[string]any{
			"contact": req.ContactID,
		})
		return
	}

	e.mu.Lock()
	e.current = currentSet{contactID: req.ContactID, suggestions: suggestions}
	e.mu.Unlock()

	texts := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		texts = append(texts, s.Text)
	}
	e.events.PublishUI(bus.UIEvent{
		Kind:      bus.UIShown,
		ContactID: req.ContactID,
		Texts:     texts,
		Timestamp: time.Now(),
	})
}

// Select inserts the chosen suggestion into the composer and records
// the acceptance. Called by the UI collaborator.
func (e *Engine) Select(ctx context.Context, suggestionID string) bool {
	e.mu.Lock()
	set := e.current
	e.mu.Unlock()

	for _, s := range set.suggestions {
		if s.ID != suggestionID {
			continue
		}
		if !e.adapter.InsertText(s.Text) {
			logger.WarnC("engine", "Text insertion failed")
			return false
		}
		if err := e.store.RecordOutcome(ctx, set.contactID, s.ID, true); err != nil {
			logger.WarnCF("engine", "Outcome record failed", map[string]any{"error": err.Error()})
		}
		e.events.PublishUI(bus.UIEvent{
			Kind:         bus.UISelected,
			ContactID:    set.contactID,
			SuggestionID: s.ID,
			Timestamp:    time.Now(),
		})
		return true
	}
	return false
}

// Reject records a dismissed suggestion set. Called by the UI
// collaborator.
func (e *Engine) Reject(ctx context.Context, suggestionID string) {
	e.mu.Lock()
	set := e.current
	e.mu.Unlock()

	for _, s := range set.suggestions {
		if s.ID != suggestionID {
			continue
		}
		if err := e.store.RecordOutcome(ctx, set.contactID, s.ID, false); err != nil {
			logger.WarnCF("engine", "Outcome record failed", map[string]any{"error": err.Error()})
		}
		e.events.PublishUI(bus.UIEvent{
			Kind:         bus.UIRejected,
			ContactID:    set.contactID,
			SuggestionID: s.ID,
			Timestamp:    time.Now(),
		})
		return
	}
}

// ApplySettings pushes new runtime settings; they take effect on the
// next detection cycle.
func (e *Engine) ApplySettings(s config.Settings) {
	e.cfg.Apply(s)
	logger.InfoCF("engine", "Settings applied", map[string]any{
		"enabled":  s.Enabled,
		"provider": s.Provider,
	})
}

// Current returns the most recently shown suggestion set.
func (e *Engine) Current() (string, []suggest.Suggestion) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.contactID, append([]suggest.Suggestion(nil), e.current.suggestions...)
}

func lastInbound(window []contacts.Entry) string {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].Direction == bus.DirectionIn {
			return window[i].Text
		}
	}
	return ""
}
