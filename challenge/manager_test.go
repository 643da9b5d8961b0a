package challenge

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"
	"time"

	"selwood.net/tasklock"
	"selwood.net/tasklock/lib/crypto"
)

type staticKeySource struct {
	keys map[string]string
}

func (s *staticKeySource) PublicKeyOf(_ context.Context, name string) (string, error) {
	material, ok := s.keys[name]
	if !ok {
		return "", tasklock.ErrUnknownPrincipal
	}
	return material, nil
}

func newTestKeySource(t *testing.T, names ...string) (*staticKeySource, map[string]*rsa.PrivateKey) {
	t.Helper()
	src := &staticKeySource{keys: make(map[string]string)}
	privs := make(map[string]*rsa.PrivateKey)
	for _, name := range names {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatal(err)
		}
		der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
		if err != nil {
			t.Fatal(err)
		}
		src.keys[name] = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
		privs[name] = priv
	}
	return src, privs
}

func TestGetOrCreateChallengeStableWithinLifetime(t *testing.T) {
	src, _ := newTestKeySource(t, "alice")
	m := NewManager(src, WithTruthLength(64))

	first, err := m.GetOrCreateChallenge(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.GetOrCreateChallenge(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first.Ciphertext, second.Ciphertext) ||
		!bytes.Equal(first.Nonce, second.Nonce) ||
		!bytes.Equal(first.Tag, second.Tag) ||
		!bytes.Equal(first.WrappedSessionKey, second.WrappedSessionKey) {
		t.Fatal("live challenge changed between reads")
	}
	if !first.Expiry.Equal(second.Expiry) {
		t.Fatal("expiry moved on read")
	}
}

func TestGetOrCreateChallengeRegeneratesAfterExpiry(t *testing.T) {
	src, _ := newTestKeySource(t, "alice")
	m := NewManager(src, WithTruthLength(64))

	first, err := m.GetOrCreateChallenge(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}

	// Move the clock to the expiry instant; at expiry the challenge is
	// already invalid.
	m.now = func() time.Time { return first.Expiry }

	second, err := m.GetOrCreateChallenge(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(first.Ciphertext, second.Ciphertext) {
		t.Fatal("ciphertext not regenerated after expiry")
	}
	if bytes.Equal(first.Nonce, second.Nonce) {
		t.Fatal("nonce not regenerated after expiry")
	}
	if bytes.Equal(first.WrappedSessionKey, second.WrappedSessionKey) {
		t.Fatal("session key not regenerated after expiry")
	}
	if !second.Expiry.Equal(first.Expiry.Add(tasklock.DefaultChallengeLifetime)) {
		t.Fatalf("unexpected new expiry: %v", second.Expiry)
	}
}

func TestGetOrCreateChallengeUnknownPrincipal(t *testing.T) {
	src, _ := newTestKeySource(t)
	m := NewManager(src)

	if _, err := m.GetOrCreateChallenge(context.Background(), "nobody"); err != tasklock.ErrUnknownPrincipal {
		t.Fatalf("expected ErrUnknownPrincipal, got %v", err)
	}
}

func TestInvalidateForcesRegeneration(t *testing.T) {
	src, _ := newTestKeySource(t, "alice")
	m := NewManager(src, WithTruthLength(64))

	first, err := m.GetOrCreateChallenge(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}

	m.Invalidate("alice")

	second, err := m.GetOrCreateChallenge(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(first.Ciphertext, second.Ciphertext) {
		t.Fatal("challenge survived invalidation")
	}
}

func TestInvalidateReleasesSlot(t *testing.T) {
	src, _ := newTestKeySource(t, "alice")
	m := NewManager(src, WithTruthLength(64))

	if _, err := m.GetOrCreateChallenge(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}

	m.Invalidate("alice")

	m.mu.Lock()
	_, resident := m.slots["alice"]
	m.mu.Unlock()
	if resident {
		t.Fatal("slot survived invalidation; deleted principals would accumulate forever")
	}
	if _, _, ok := m.current("alice"); ok {
		t.Fatal("truth still readable after invalidation")
	}
}

func TestChallengeRecoverableWithPrivateKey(t *testing.T) {
	src, privs := newTestKeySource(t, "alice")
	m := NewManager(src)

	ch, err := m.GetOrCreateChallenge(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}

	sessionKey, err := crypto.UnwrapKey(privs["alice"], ch.WrappedSessionKey)
	if err != nil {
		t.Fatal(err)
	}
	solution, err := crypto.Open(&crypto.SealedTruth{
		Ciphertext: ch.Ciphertext,
		Nonce:      ch.Nonce,
		Tag:        ch.Tag,
	}, sessionKey)
	if err != nil {
		t.Fatal(err)
	}

	truth, _, ok := m.current("alice")
	if !ok {
		t.Fatal("no stored challenge")
	}
	if string(solution) != truth {
		t.Fatal("recovered solution differs from stored truth")
	}
	if len(truth) != tasklock.DefaultTruthLength*2 {
		t.Fatalf("unexpected truth length %d", len(truth))
	}
}

func TestConcurrentGetOrCreateSingleGeneration(t *testing.T) {
	src, _ := newTestKeySource(t, "alice")
	m := NewManager(src, WithTruthLength(64))

	const workers = 16
	views := make([]*tasklock.Challenge, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			ch, err := m.GetOrCreateChallenge(context.Background(), "alice")
			if err != nil {
				t.Error(err)
				return
			}
			views[i] = ch
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if views[i] == nil || !bytes.Equal(views[0].Ciphertext, views[i].Ciphertext) {
			t.Fatal("concurrent readers observed different challenges")
		}
	}
}
