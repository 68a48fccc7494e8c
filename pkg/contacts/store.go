package contacts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/smartreplyhq/smartreply/pkg/bus"
	"github.com/smartreplyhq/smartreply/pkg/logger"
	"github.com/smartreplyhq/smartreply/pkg/privacy"
	"github.com/smartreplyhq/smartreply/pkg/storage"
)

const (
	profileCacheSize = 256
	windowCapacity   = 10
)

type Counters struct {
	Messages int `json:"messages"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// Profile is the persisted per-contact record. ContactID is always
// the adapter's one-way hash.
type Profile struct {
	ContactID string       `json:"contact_id"`
	Platform  string       `json:"platform"`
	Style     StyleProfile `json:"style"`
	Counters  Counters     `json:"counters"`
	LastSeen  time.Time    `json:"last_seen"`
}

// Entry is one turn in the active conversation context.
type Entry struct {
	Direction bus.Direction `json:"direction"`
	Text      string        `json:"text"`
	Timestamp time.Time     `json:"timestamp"`
}

// Store owns per-contact profiles and the single active conversation
// window. Writes come from the event pipeline only; reads for
// suggestion building take a snapshot.
type Store struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, *Profile]
	kv     *storage.Store
	cipher *privacy.Cipher

	activeContact string
	window        []Entry
}

func NewStore(kv *storage.Store, cipher *privacy.Cipher) (*Store, error) {
	cache, err := lru.New[string, *Profile](profileCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create profile cache: %w", err)
	}
	return &Store{cache: cache, kv: kv, cipher: cipher}, nil
}

// GetOrCreate returns the profile for contactID, loading the
// persisted record on a cache miss and creating a default profile on
// first sight.
func (s *Store) GetOrCreate(ctx context.Context, contactID, platformName string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.getOrCreateLocked(ctx, contactID, platformName)
	if err != nil {
		return Profile{}, err
	}
	return *p, nil
}

func (s *Store) getOrCreateLocked(ctx context.Context, contactID, platformName string) (*Profile, error) {
	if p, ok := s.cache.Get(contactID); ok {
		return p, nil
	}

	if s.kv != nil {
		data, err := s.kv.Get(ctx, storage.PrefixContactData+contactID)
		if err == nil {
			var rec privacy.EncryptedRecord
			var p Profile
			if err := decodeRecord(data, &rec); err == nil {
				if err := s.cipher.DecryptJSON(rec, &p); err == nil {
					s.cache.Add(contactID, &p)
					return &p, nil
				}
				logger.WarnCF("contacts", "Discarding unreadable contact record", map[string]any{
					"contact": contactID,
				})
			}
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load contact %s: %w", contactID, err)
		}
	}

	p := &Profile{
		ContactID: contactID,
		Platform:  platformName,
		Style:     DefaultStyle(),
		LastSeen:  time.Now(),
	}
	s.cache.Add(contactID, p)
	logger.DebugCF("contacts", "New contact profile", map[string]any{"contact": contactID})
	return p, nil
}

// Update records one message for the contact: counters always, style
// signature for inbound text, and the contact's conversation window.
// The message lands in its own contact's persisted window even when
// that contact is not active, so a later switch restores it; the
// in-memory window only tracks the active conversation.
func (s *Store) Update(ctx context.Context, contactID, platformName string, ev Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.getOrCreateLocked(ctx, contactID, platformName)
	if err != nil {
		return err
	}

	p.Counters.Messages++
	p.LastSeen = ev.Timestamp
	if ev.Direction == bus.DirectionIn {
		p.Style.observe(ev.Text)
	}

	var window []Entry
	if contactID == s.activeContact {
		window = appendTrimmed(s.window, ev)
		s.window = window
	} else {
		window = appendTrimmed(s.loadWindowLocked(ctx, contactID), ev)
	}
	if err := s.persistWindowLocked(ctx, contactID, window); err != nil {
		logger.WarnCF("contacts", "Persist conversation window failed", map[string]any{
			"contact": contactID,
			"error":   err.Error(),
		})
	}

	return s.persistProfileLocked(ctx, p)
}

func appendTrimmed(window []Entry, ev Entry) []Entry {
	window = append(window, ev)
	if len(window) > windowCapacity {
		window = window[len(window)-windowCapacity:]
	}
	return window
}

// RecordOutcome updates acceptance counters after a suggestion was
// selected or rejected.
func (s *Store) RecordOutcome(ctx context.Context, contactID, suggestionID string, accepted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.cache.Get(contactID)
	if !ok {
		return fmt.Errorf("record outcome: unknown contact %s", contactID)
	}
	if accepted {
		p.Counters.Accepted++
	} else {
		p.Counters.Rejected++
	}
	logger.DebugCF("contacts", "Suggestion outcome recorded", map[string]any{
		"contact":    contactID,
		"suggestion": suggestionID,
		"accepted":   accepted,
	})
	return s.persistProfileLocked(ctx, p)
}

// SetActive replaces the conversation context wholesale for the new
// contact, restoring its persisted recent history when present.
func (s *Store) SetActive(ctx context.Context, contactID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if contactID == s.activeContact {
		return
	}
	s.activeContact = contactID
	s.window = s.loadWindowLocked(ctx, contactID)
	logger.DebugCF("contacts", "Active contact switched", map[string]any{
		"contact": contactID,
		"history": len(s.window),
	})
}

func (s *Store) ActiveContact() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeContact
}

// Context returns a consistent snapshot of the active conversation
// window, oldest first.
func (s *Store) Context() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.window...)
}

// Clear wipes all contact and conversation data (explicit user
// data-clear).
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
	s.window = nil
	s.activeContact = ""
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Clear(ctx, storage.PrefixContactData); err != nil {
		return err
	}
	return s.kv.Clear(ctx, storage.PrefixConversationRec)
}

func (s *Store) persistProfileLocked(ctx context.Context, p *Profile) error {
	if s.kv == nil {
		return nil
	}
	rec, err := s.cipher.EncryptJSON(p)
	if err != nil {
		return fmt.Errorf("encrypt contact %s: %w", p.ContactID, err)
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, storage.PrefixContactData+p.ContactID, data)
}

func (s *Store) persistWindowLocked(ctx context.Context, contactID string, window []Entry) error {
	if s.kv == nil || contactID == "" {
		return nil
	}
	rec, err := s.cipher.EncryptJSON(window)
	if err != nil {
		return fmt.Errorf("encrypt conversation window: %w", err)
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, storage.PrefixConversationRec+contactID, data)
}

func (s *Store) loadWindowLocked(ctx context.Context, contactID string) []Entry {
	if s.kv == nil || contactID == "" {
		return nil
	}
	data, err := s.kv.Get(ctx, storage.PrefixConversationRec+contactID)
	if err != nil {
		return nil
	}
	var rec privacy.EncryptedRecord
	if err := decodeRecord(data, &rec); err != nil {
		return nil
	}
	var window []Entry
	if err := s.cipher.DecryptJSON(rec, &window); err != nil {
		return nil
	}
	if len(window) > windowCapacity {
		window = window[len(window)-windowCapacity:]
	}
	return window
}
