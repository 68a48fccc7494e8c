package platform

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/smartreplyhq/smartreply/pkg/logger"
)

// ErrPlatformTimeout reports that the surface never became ready
// within the wait budget. Surfaced to the popup as "platform not
// ready"; the core takes no further action until redetection.
var ErrPlatformTimeout = errors.New("platform not ready")

type State int

const (
	StateUnresolved State = iota
	StateResolved
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateUnknown:
		return "unknown"
	default:
		return "unresolved"
	}
}

const (
	defaultReadyTimeout = 10 * time.Second
	readyProbeInterval  = 250 * time.Millisecond
)

// Resolver selects and owns the active adapter for a page.
type Resolver struct {
	page         Page
	tables       []SelectorTable
	now          func() time.Time
	readyTimeout time.Duration

	mu      sync.Mutex
	state   State
	adapter Adapter
}

type ResolverOption func(*Resolver)

func WithTables(tables []SelectorTable) ResolverOption {
	return func(r *Resolver) {
		if len(tables) > 0 {
			r.tables = tables
		}
	}
}

func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

func WithReadyTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.readyTimeout = d
		}
	}
}

func NewResolver(page Page, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		page:         page,
		tables:       DefaultTables(),
		now:          time.Now,
		readyTimeout: defaultReadyTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve picks the platform: host discriminators in table priority
// order first, content-signature heuristics second. Idempotent once
// resolved; Reset forces re-resolution.
func (r *Resolver) Resolve() (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateResolved {
		return r.adapter, nil
	}

	if table, ok := r.matchByHost(); ok {
		return r.resolved(table, "host"), nil
	}
	if table, ok := r.matchBySignature(); ok {
		return r.resolved(table, "signature"), nil
	}

	r.state = StateUnknown
	r.adapter = nil
	return nil, fmt.Errorf("no platform matched %s", r.page.URL())
}

func (r *Resolver) resolved(table SelectorTable, method string) Adapter {
	r.state = StateResolved
	r.adapter = newTableAdapter(table, r.page, r.now)
	logger.InfoCF("resolver", "Platform resolved", map[string]any{
		"platform": table.Name,
		"method":   method,
	})
	return r.adapter
}

func (r *Resolver) matchByHost() (SelectorTable, bool) {
	u, err := url.Parse(r.page.URL())
	if err != nil {
		return SelectorTable{}, false
	}
	host := strings.ToLower(u.Host)
	for _, table := range r.tables {
		for _, h := range table.Hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return table, true
			}
		}
	}
	return SelectorTable{}, false
}

func (r *Resolver) matchBySignature() (SelectorTable, bool) {
	root := r.page.Root()
	if root == nil {
		return SelectorTable{}, false
	}
	for _, table := range r.tables {
		if root.FindByClass(table.SignatureClasses) != nil {
			return table, true
		}
	}
	return SelectorTable{}, false
}

func (r *Resolver) Adapter() Adapter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.adapter
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// IsReady reports whether the surface can both be observed and
// written to: an input-capable element and at least one message
// element must be present.
func (r *Resolver) IsReady() bool {
	r.mu.Lock()
	adapter := r.adapter
	r.mu.Unlock()
	if adapter == nil {
		return false
	}

	ta, ok := adapter.(*tableAdapter)
	if !ok {
		return true
	}
	root := r.page.Root()
	if root == nil {
		return false
	}
	return root.FindByClass(ta.table.InputClasses) != nil &&
		root.FindByClass(ta.table.MessageClasses) != nil
}

// WaitReady polls IsReady until it holds or the wait budget runs out.
// Callers must await this before starting observation.
func (r *Resolver) WaitReady(ctx context.Context) error {
	deadline := time.NewTimer(r.readyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(readyProbeInterval)
	defer ticker.Stop()

	for {
		if r.IsReady() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrPlatformTimeout, ctx.Err())
		case <-deadline.C:
			logger.WarnCF("resolver", "Readiness wait exceeded", map[string]any{
				"timeout": r.readyTimeout.String(),
			})
			return ErrPlatformTimeout
		case <-ticker.C:
		}
	}
}

// Reset forces re-resolution, e.g. after a navigation.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateUnresolved
	r.adapter = nil
	logger.DebugC("resolver", "Resolution reset")
}
