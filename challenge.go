package tasklock

import (
	"context"
	"time"
)

// Challenge is the public view of a principal's outstanding challenge. The
// truth value itself is never part of the view; only the material a client
// needs to recover it with the matching private key.
type Challenge struct {
	Owner             string
	Ciphertext        []byte
	WrappedSessionKey []byte
	Nonce             []byte
	Tag               []byte
	Expiry            time.Time
}

// KeySource provides the current public key material for a principal.
// Implementations return ErrUnknownPrincipal when no key is on file.
type KeySource interface {
	PublicKeyOf(ctx context.Context, name string) (string, error)
}

type ChallengeService interface {
	// GetOrCreateChallenge returns the stored challenge for principal,
	// generating a fresh one first if none exists or the stored one has
	// expired. It never regenerates a live challenge.
	GetOrCreateChallenge(ctx context.Context, principal string) (*Challenge, error)

	// Invalidate discards any stored challenge for principal, forcing the
	// next GetOrCreateChallenge to regenerate. Required when a principal's
	// public key is replaced; the old challenge is unrecoverable under the
	// new key.
	Invalidate(principal string)
}

type SolutionValidator interface {
	// Validate reports whether solution equals the current, non-expired
	// truth value for principal. It has no side effects: an absent or
	// expired challenge fails validation and is not regenerated.
	Validate(principal, solution string) bool
}
