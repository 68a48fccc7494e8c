package feed

import (
	"sync"
	"time"

	"github.com/smartreplyhq/smartreply/pkg/bus"
	"github.com/smartreplyhq/smartreply/pkg/logger"
	"github.com/smartreplyhq/smartreply/pkg/platform"
)

// Mutation is one structural change batch from the host feed: nodes
// added to the document plus nodes whose attributes changed, both in
// document order.
type Mutation struct {
	Added            []*platform.Node
	AttributeTargets []*platform.Node
}

const (
	defaultDedupWindow    = 5 * time.Second
	defaultTypingDebounce = time.Second
)

// Observer drives the adapter over mutation batches and emits
// normalized domain events. Detection is synchronous on Process; the
// only timer is the typing debounce.
type Observer struct {
	adapter        platform.Adapter
	events         *bus.EventBus
	now            func() time.Time
	dedupWindow    time.Duration
	typingDebounce time.Duration

	mu            sync.Mutex
	running       bool
	lastContact   string
	recentSeen    map[string]time.Time
	typingTimer   *time.Timer
	typingContact string
}

type ObserverOption func(*Observer)

func WithDedupWindow(d time.Duration) ObserverOption {
	return func(o *Observer) {
		if d > 0 {
			o.dedupWindow = d
		}
	}
}

func WithTypingDebounce(d time.Duration) ObserverOption {
	return func(o *Observer) {
		if d > 0 {
			o.typingDebounce = d
		}
	}
}

func WithClock(now func() time.Time) ObserverOption {
	return func(o *Observer) { o.now = now }
}

func NewObserver(adapter platform.Adapter, events *bus.EventBus, opts ...ObserverOption) *Observer {
	o := &Observer{
		adapter:        adapter,
		events:         events,
		now:            time.Now,
		dedupWindow:    defaultDedupWindow,
		typingDebounce: defaultTypingDebounce,
		recentSeen:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start is idempotent.
func (o *Observer) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return
	}
	o.running = true
	logger.InfoCF("feed", "Observer started", map[string]any{
		"platform": o.adapter.Platform(),
	})
}

// Stop detaches the observer and clears pending timers. Idempotent.
func (o *Observer) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.running = false
	if o.typingTimer != nil {
		o.typingTimer.Stop()
		o.typingTimer = nil
		o.typingContact = ""
	}
	o.recentSeen = make(map[string]time.Time)
	logger.InfoC("feed", "Observer stopped")
}

// Process reduces one mutation batch into domain events. Added nodes
// are visited recursively in document order; a matched message node's
// subtree is not descended into again.
func (o *Observer) Process(batch Mutation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}

	for _, node := range batch.Added {
		o.walkAdded(node)
	}
	for _, node := range batch.AttributeTargets {
		if typing := o.adapter.DetectTyping(node); typing != nil {
			o.handleTypingLocked(typing)
		}
	}
}

// SyncContact re-checks the adapter's current contact immediately.
// Callers use it after a navigation, when no message mutation will
// arrive to trigger the check.
func (o *Observer) SyncContact() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.checkContactLocked()
}

func (o *Observer) walkAdded(node *platform.Node) {
	if node == nil {
		return
	}
	if typing := o.adapter.DetectTyping(node); typing != nil {
		o.handleTypingLocked(typing)
	}
	if msg := o.adapter.DetectMessage(node); msg != nil {
		o.handleMessageLocked(msg)
		return
	}
	for _, child := range node.Children {
		o.walkAdded(child)
	}
}

func (o *Observer) handleMessageLocked(msg *platform.MessageData) {
	now := o.now()
	key := msg.ContactID + "\x00" + msg.Text
	if last, ok := o.recentSeen[key]; ok && now.Sub(last) < o.dedupWindow {
		// Platforms re-render the same node on scroll/reflow.
		logger.DebugCF("feed", "Duplicate message suppressed", map[string]any{
			"contact": msg.ContactID,
		})
		return
	}
	o.recentSeen[key] = now
	o.pruneSeenLocked(now)

	direction := bus.DirectionIn
	if !msg.Incoming {
		direction = bus.DirectionOut
	}
	o.events.PublishEvent(bus.Event{
		Type:      bus.EventMessageReceived,
		ContactID: msg.ContactID,
		Platform:  o.adapter.Platform(),
		Text:      msg.Text,
		Direction: direction,
		Timestamp: msg.Timestamp,
	})

	o.checkContactLocked()
}

// checkContactLocked compares the adapter's current contact with the
// last observed one, evaluated after each processed message.
func (o *Observer) checkContactLocked() {
	current := o.adapter.CurrentContactID()
	if current == "" || current == o.lastContact {
		return
	}
	o.lastContact = current
	o.events.PublishEvent(bus.Event{
		Type:      bus.EventContactChanged,
		ContactID: current,
		Platform:  o.adapter.Platform(),
		Timestamp: o.now(),
	})
}

// handleTypingLocked coalesces indicator flicker: the event is only
// emitted after the debounce interval of continued/renewed presence.
func (o *Observer) handleTypingLocked(typing *platform.TypingData) {
	if o.typingTimer != nil && o.typingContact == typing.ContactID {
		return
	}
	if o.typingTimer != nil {
		o.typingTimer.Stop()
	}

	contactID := typing.ContactID
	o.typingContact = contactID
	o.typingTimer = time.AfterFunc(o.typingDebounce, func() {
		o.mu.Lock()
		if !o.running || o.typingContact != contactID {
			o.mu.Unlock()
			return
		}
		o.typingTimer = nil
		o.typingContact = ""
		platformName := o.adapter.Platform()
		now := o.now()
		o.mu.Unlock()

		o.events.PublishEvent(bus.Event{
			Type:      bus.EventTypingDetected,
			ContactID: contactID,
			Platform:  platformName,
			Timestamp: now,
		})
	})
}

func (o *Observer) pruneSeenLocked(now time.Time) {
	if len(o.recentSeen) < 256 {
		return
	}
	for key, seen := range o.recentSeen {
		if now.Sub(seen) >= o.dedupWindow {
			delete(o.recentSeen, key)
		}
	}
}
