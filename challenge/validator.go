package challenge

import (
	"time"

	"selwood.net/tasklock"
	"selwood.net/tasklock/lib/crypto"
)

// Validator checks submitted solutions against the manager's stored truth
// values. It never generates, refreshes or discards a challenge; an absent
// or expired challenge simply fails validation.
type Validator struct {
	m   *Manager
	now func() time.Time
}

var _ tasklock.SolutionValidator = &Validator{}

func NewValidator(m *Manager) *Validator {
	return &Validator{m: m, now: time.Now}
}

// Validate reports whether solution matches the live truth for principal.
// The comparison runs in constant time over fixed-length digests, so a
// near-miss takes exactly as long as a wild guess.
func (v *Validator) Validate(principal, solution string) bool {
	truth, expiry, ok := v.m.current(principal)
	if !ok {
		return false
	}
	if !v.now().Before(expiry) {
		return false
	}
	return crypto.Equal(solution, truth)
}
