package suggest

import (
	"context"
	"time"

	"github.com/smartreplyhq/smartreply/pkg/contacts"
	"github.com/smartreplyhq/smartreply/pkg/logger"
	"github.com/smartreplyhq/smartreply/pkg/privacy"
	"golang.org/x/time/rate"
)

const (
	defaultCallTimeout = 10 * time.Second
	defaultRatePerMin  = 60
)

// Orchestrator runs the tiered suggestion chain: external providers
// in priority order, then the local pattern matcher. The result is
// never empty.
type Orchestrator struct {
	providers []Provider
	fallback  *patternMatcher
	limiter   *rate.Limiter
	timeout   time.Duration
}

type OrchestratorOption func(*Orchestrator)

func WithCallTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithRatePerMinute(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), n)
		}
	}
}

func WithFallbackSeed(seed int64) OrchestratorOption {
	return func(o *Orchestrator) { o.fallback = newPatternMatcher(seed) }
}

// NewOrchestrator takes providers in priority order.
func NewOrchestrator(providers []Provider, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		providers: providers,
		fallback:  newPatternMatcher(time.Now().UnixNano()),
		limiter:   rate.NewLimiter(rate.Limit(defaultRatePerMin/60.0), defaultRatePerMin),
		timeout:   defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Suggest produces the three presented variants for a request. The
// request context is sanitized here so no provider ever sees raw PII.
// Provider failures are soft; the local matcher guarantees a result.
func (o *Orchestrator) Suggest(ctx context.Context, req Request) []Suggestion {
	req = sanitizeRequest(req)
	prompt := BuildPrompt(req)

	base := ""
	for _, p := range o.providers {
		// Cooperative rate limiting: block until budget frees rather
		// than rejecting the call.
		if err := o.limiter.Wait(ctx); err != nil {
			logger.WarnCF("suggest", "Rate limiter wait aborted", map[string]any{
				"error": err.Error(),
			})
			break
		}

		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		text, err := p.Complete(callCtx, prompt)
		cancel()
		if err != nil {
			logger.WarnCF("suggest", "Provider failed, falling through", map[string]any{
				"provider": p.Name(),
				"error":    err.Error(),
			})
			continue
		}
		if text == "" {
			logger.WarnCF("suggest", "Provider returned empty text", map[string]any{
				"provider": p.Name(),
			})
			continue
		}
		base = text
		logger.DebugCF("suggest", "Provider answered", map[string]any{"provider": p.Name()})
		break
	}

	if base == "" {
		base, _ = o.fallback.Complete(ctx, prompt)
		logger.DebugC("suggest", "Local pattern matcher answered")
	}

	return expandVariants(base, req.Style)
}

func sanitizeRequest(req Request) Request {
	req.Message = privacy.ScrubText(req.Message)
	cleaned := append([]contacts.Entry(nil), req.Context...)
	for i := range cleaned {
		cleaned[i].Text = privacy.ScrubText(cleaned[i].Text)
	}
	req.Context = cleaned
	return req
}
