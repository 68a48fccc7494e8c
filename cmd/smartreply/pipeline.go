package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smartreplyhq/smartreply/pkg/bus"
	"github.com/smartreplyhq/smartreply/pkg/config"
	"github.com/smartreplyhq/smartreply/pkg/contacts"
	"github.com/smartreplyhq/smartreply/pkg/engine"
	"github.com/smartreplyhq/smartreply/pkg/feed"
	"github.com/smartreplyhq/smartreply/pkg/logger"
	"github.com/smartreplyhq/smartreply/pkg/platform"
	"github.com/smartreplyhq/smartreply/pkg/privacy"
	"github.com/smartreplyhq/smartreply/pkg/retention"
	"github.com/smartreplyhq/smartreply/pkg/storage"
	"github.com/smartreplyhq/smartreply/pkg/suggest"
)

// pipeline wires the full detection-to-suggestion stack over one page.
type pipeline struct {
	cfg      *config.Config
	events   *bus.EventBus
	kv       *storage.Store
	cipher   *privacy.Cipher
	store    *contacts.Store
	resolver *platform.Resolver
	adapter  platform.Adapter
	observer *feed.Observer
	engine   *engine.Engine
	cleanup  *retention.Job
}

func buildPipeline(ctx context.Context, cfg *config.Config, page platform.Page) (*pipeline, error) {
	events := bus.NewEventBus()

	kv, err := storage.NewStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	cipher, err := setupCipher(ctx, kv, cfg.Privacy.RequireCrypto)
	if err != nil {
		kv.Close()
		return nil, err
	}
	if cipher.Degraded() {
		events.PublishUI(bus.UIEvent{
			Kind:      bus.UINotice,
			Message:   "encryption unavailable: contact data is stored unprotected",
			Timestamp: time.Now(),
		})
	}

	store, err := contacts.NewStore(kv, cipher)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("contact store: %w", err)
	}

	resolver := platform.NewResolver(page)
	adapter, err := resolver.Resolve()
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("resolve platform: %w", err)
	}
	if err := resolver.WaitReady(ctx); err != nil {
		if errors.Is(err, platform.ErrPlatformTimeout) {
			events.PublishUI(bus.UIEvent{
				Kind:      bus.UINotice,
				Message:   "platform not ready",
				Timestamp: time.Now(),
			})
		}
		kv.Close()
		return nil, err
	}

	orchestrator := suggest.NewOrchestrator(
		buildProviders(cfg),
		suggest.WithCallTimeout(time.Duration(cfg.Providers.TimeoutSeconds)*time.Second),
		suggest.WithRatePerMinute(cfg.Providers.RatePerMinute),
	)

	return &pipeline{
		cfg:      cfg,
		events:   events,
		kv:       kv,
		cipher:   cipher,
		store:    store,
		resolver: resolver,
		adapter:  adapter,
		observer: feed.NewObserver(adapter, events),
		engine:   engine.New(cfg, events, store, orchestrator, adapter),
		cleanup:  retention.NewJob(kv, cfg.Privacy.RetentionDays),
	}, nil
}

// buildProviders returns the external tiers in priority order; the
// configured provider choice moves its tier first.
func buildProviders(cfg *config.Config) []suggest.Provider {
	primary := suggest.NewChatProvider("primary",
		cfg.Providers.Primary.APIKey, cfg.Providers.Primary.APIBase, cfg.Providers.Primary.Model)
	secondary := suggest.NewTextProvider("secondary",
		cfg.Providers.Secondary.APIKey, cfg.Providers.Secondary.APIBase, cfg.Providers.Secondary.Model)

	if cfg.Snapshot().Provider == "secondary" {
		return []suggest.Provider{secondary, primary}
	}
	return []suggest.Provider{primary, secondary}
}

// setupCipher loads or creates the persisted encryption key. When the
// primitive is unavailable the pipeline continues in degraded
// plaintext mode unless the config forbids it.
func setupCipher(ctx context.Context, kv *storage.Store, requireCrypto bool) (*privacy.Cipher, error) {
	key, err := kv.Get(ctx, storage.KeyEncryptionKey)
	if errors.Is(err, storage.ErrNotFound) {
		key, err = privacy.GenerateKey()
		if err == nil {
			if setErr := kv.Set(ctx, storage.KeyEncryptionKey, key); setErr != nil {
				return nil, fmt.Errorf("persist encryption key: %w", setErr)
			}
		}
	}
	if err == nil {
		cipher, cipherErr := privacy.NewCipher(key)
		if cipherErr == nil {
			return cipher, nil
		}
		err = cipherErr
	}

	if requireCrypto {
		return nil, fmt.Errorf("encryption required but unavailable: %w", err)
	}
	logger.WarnCF("privacy", "Encryption unavailable, storing data unprotected", map[string]any{
		"error": err.Error(),
	})
	return privacy.NewDegradedCipher(), nil
}

func (p *pipeline) start(ctx context.Context) {
	p.observer.Start()
	go p.engine.Run(ctx)
	go p.cleanup.Run(ctx)
	// Prime the active contact from the current page so typing events
	// are acted on before the first message arrives.
	p.observer.SyncContact()
}

func (p *pipeline) stop() {
	p.observer.Stop()
	p.events.Close()
	if err := p.kv.Close(); err != nil {
		logger.WarnCF("main", "Close storage failed", map[string]any{"error": err.Error()})
	}
}
