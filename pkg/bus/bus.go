package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type EventBus struct {
	events  chan Event
	ui      chan UIEvent
	closed  bool
	dropped droppedCounters
	mu      sync.RWMutex
}

type droppedCounters struct {
	events atomic.Uint64
	ui     atomic.Uint64
}

const publishTimeout = 100 * time.Millisecond

func NewEventBus() *EventBus {
	return &EventBus{
		events: make(chan Event, 100),
		ui:     make(chan UIEvent, 100),
	}
}

func (eb *EventBus) PublishEvent(ev Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return
	}

	select {
	case eb.events <- ev:
	default:
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case eb.events <- ev:
		case <-timer.C:
			eb.dropped.events.Add(1)
		}
	}
}

func (eb *EventBus) ConsumeEvent(ctx context.Context) (Event, bool) {
	select {
	case ev, ok := <-eb.events:
		if !ok {
			return Event{}, false
		}
		return ev, true
	case <-ctx.Done():
		return Event{}, false
	}
}

func (eb *EventBus) PublishUI(ev UIEvent) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return
	}

	select {
	case eb.ui <- ev:
	default:
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case eb.ui <- ev:
		case <-timer.C:
			eb.dropped.ui.Add(1)
		}
	}
}

func (eb *EventBus) SubscribeUI(ctx context.Context) (UIEvent, bool) {
	select {
	case ev, ok := <-eb.ui:
		if !ok {
			return UIEvent{}, false
		}
		return ev, true
	case <-ctx.Done():
		return UIEvent{}, false
	}
}

func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	close(eb.events)
	close(eb.ui)
}

func (eb *EventBus) DroppedEvents() uint64 {
	return eb.dropped.events.Load()
}

func (eb *EventBus) DroppedUI() uint64 {
	return eb.dropped.ui.Load()
}
