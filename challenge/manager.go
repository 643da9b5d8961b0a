// Package challenge owns the lifecycle of per-principal challenges: lazy
// generation, encryption, expiry tracking and solution validation.
package challenge

import (
	"context"
	"crypto/rsa"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/sirupsen/logrus"

	"selwood.net/tasklock"
	"selwood.net/tasklock/lib/crypto"
)

const keyCacheMaxEntries = 1000

type Option func(*Manager)

func WithLifetime(d time.Duration) Option {
	return func(m *Manager) { m.lifetime = d }
}

func WithTruthLength(n int) Option {
	return func(m *Manager) { m.truthLen = n }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = log }
}

// record pairs the secret truth with the client-visible challenge material.
type record struct {
	truth string
	view  tasklock.Challenge
}

// slot serializes the check-then-generate sequence for one principal, so two
// concurrent readers can never race a regeneration and observe challenges
// with mismatched session keys.
type slot struct {
	mu sync.Mutex
	ch *record
}

type Manager struct {
	keys     tasklock.KeySource
	lifetime time.Duration
	truthLen int
	log      logrus.FieldLogger
	now      func() time.Time

	mu    sync.Mutex
	slots map[string]*slot

	cacheMu sync.Mutex
	parsed  *lru.Cache // principal name -> *rsa.PublicKey
}

var _ tasklock.ChallengeService = &Manager{}

func NewManager(keys tasklock.KeySource, options ...Option) *Manager {
	m := &Manager{
		keys:     keys,
		lifetime: tasklock.DefaultChallengeLifetime,
		truthLen: tasklock.DefaultTruthLength,
		now:      time.Now,
		slots:    make(map[string]*slot),
		parsed:   &lru.Cache{MaxEntries: keyCacheMaxEntries},
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *Manager) slotFor(principal string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[principal]
	if !ok {
		s = &slot{}
		m.slots[principal] = s
	}
	return s
}

func (m *Manager) publicKey(ctx context.Context, principal string) (*rsa.PublicKey, error) {
	m.cacheMu.Lock()
	if cached, ok := m.parsed.Get(principal); ok {
		m.cacheMu.Unlock()
		return cached.(*rsa.PublicKey), nil
	}
	m.cacheMu.Unlock()

	material, err := m.keys.PublicKeyOf(ctx, principal)
	if err != nil {
		return nil, err
	}

	pub, err := crypto.ParsePublicKey(material)
	if err != nil {
		// A key that was accepted at registration but no longer parses is
		// indistinguishable from no key at all.
		return nil, tasklock.ErrUnknownPrincipal
	}

	m.cacheMu.Lock()
	m.parsed.Add(principal, pub)
	m.cacheMu.Unlock()
	return pub, nil
}

func (m *Manager) generate(ctx context.Context, principal string) (*record, error) {
	pub, err := m.publicKey(ctx, principal)
	if err != nil {
		return nil, err
	}

	truth, err := crypto.GenerateTruth(m.truthLen)
	if err != nil {
		return nil, err
	}

	sessionKey, err := crypto.RandomBytes(crypto.SessionKeySize)
	if err != nil {
		return nil, err
	}

	sealed, err := crypto.Seal([]byte(truth), sessionKey)
	if err != nil {
		return nil, err
	}

	wrapped, err := crypto.WrapKey(pub, sessionKey)
	if err != nil {
		return nil, err
	}

	return &record{
		truth: truth,
		view: tasklock.Challenge{
			Owner:             principal,
			Ciphertext:        sealed.Ciphertext,
			WrappedSessionKey: wrapped,
			Nonce:             sealed.Nonce,
			Tag:               sealed.Tag,
			Expiry:            m.now().Add(m.lifetime),
		},
	}, nil
}

// GetOrCreateChallenge returns the live challenge for principal, generating
// a replacement first when none is stored or the stored one has expired.
// Expiry is computed once, at generation; reads never extend it.
func (m *Manager) GetOrCreateChallenge(ctx context.Context, principal string) (*tasklock.Challenge, error) {
	s := m.slotFor(principal)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil || !m.now().Before(s.ch.view.Expiry) {
		ch, err := m.generate(ctx, principal)
		if err != nil {
			return nil, err
		}
		s.ch = ch
		if m.log != nil {
			m.log.WithField("principal", principal).Debug("issued challenge")
		}
	}

	view := s.ch.view
	return &view, nil
}

// Invalidate discards principal's stored challenge and cached parsed key.
// The slot itself goes too; a principal that never returns (a deleted user,
// say) must not pin a mutex for the process lifetime.
func (m *Manager) Invalidate(principal string) {
	m.mu.Lock()
	delete(m.slots, principal)
	m.mu.Unlock()

	m.cacheMu.Lock()
	m.parsed.Remove(principal)
	m.cacheMu.Unlock()
}

// current exposes the stored truth to the validator without triggering
// regeneration.
func (m *Manager) current(principal string) (truth string, expiry time.Time, ok bool) {
	m.mu.Lock()
	s, found := m.slots[principal]
	m.mu.Unlock()
	if !found {
		return "", time.Time{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		return "", time.Time{}, false
	}
	return s.ch.truth, s.ch.view.Expiry, true
}
