package challenge

import (
	"context"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	src, _ := newTestKeySource(t, "alice")
	m := NewManager(src, WithTruthLength(64))
	v := NewValidator(m)

	ch, err := m.GetOrCreateChallenge(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	truth, _, ok := m.current("alice")
	if !ok {
		t.Fatal("no stored challenge")
	}

	t.Run("MatchBeforeExpiry", func(t *testing.T) {
		if !v.Validate("alice", truth) {
			t.Fatal("correct solution rejected")
		}
	})

	t.Run("MismatchBeforeExpiry", func(t *testing.T) {
		if v.Validate("alice", "not the truth") {
			t.Fatal("wrong solution accepted")
		}
		if v.Validate("alice", truth[:len(truth)-1]) {
			t.Fatal("truncated solution accepted")
		}
	})

	t.Run("NoChallenge", func(t *testing.T) {
		if v.Validate("bob", truth) {
			t.Fatal("validated against a principal with no challenge")
		}
	})

	t.Run("AtExpiry", func(t *testing.T) {
		v.now = func() time.Time { return ch.Expiry }
		defer func() { v.now = time.Now }()
		if v.Validate("alice", truth) {
			t.Fatal("solution accepted at expiry")
		}
	})

	t.Run("AfterExpiry", func(t *testing.T) {
		v.now = func() time.Time { return ch.Expiry.Add(time.Minute) }
		defer func() { v.now = time.Now }()
		if v.Validate("alice", truth) {
			t.Fatal("solution accepted after expiry")
		}
	})

	t.Run("NoRegenerationSideEffect", func(t *testing.T) {
		v.Validate("alice", "whatever")
		after, _, ok := m.current("alice")
		if !ok || after != truth {
			t.Fatal("validation mutated the stored challenge")
		}
	})
}
