package http

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestThrottleReleasesAfterWindow(t *testing.T) {
	th := NewSolutionThrottle(2, 50*time.Millisecond)
	r := httptest.NewRequest("PATCH", "/api/user/alice", nil)

	if !th.Allow("alice", r) || !th.Allow("alice", r) {
		t.Fatal("attempts within the limit must pass")
	}
	if th.Allow("alice", r) {
		t.Fatal("attempt over the limit must be denied")
	}

	// an over-limit attempt renews the count at five times the window, so
	// the client has to actually stop before the counter expires
	time.Sleep(300 * time.Millisecond)

	if !th.Allow("alice", r) {
		t.Fatal("count should have expired with the penalty window")
	}
}

func TestThrottleForgiveResetsCount(t *testing.T) {
	th := NewSolutionThrottle(2, time.Minute)
	r := httptest.NewRequest("PATCH", "/api/user/alice", nil)

	th.Allow("alice", r)
	th.Allow("alice", r)
	th.Forgive("alice", r)

	if !th.Allow("alice", r) {
		t.Fatal("a forgiven principal starts from a clean count")
	}
}
