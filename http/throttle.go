package http

import (
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/DHowett/gotimeout"
)

const (
	defaultThrottleMaxFailures = 5
	defaultThrottleWindow      = 1 * time.Minute
)

// SolutionThrottle counts failed solution submissions per principal and
// source address. Once the count reaches the limit the window is renewed on
// every further attempt, so a brute-forcing client never cools off while it
// keeps trying.
type SolutionThrottle struct {
	max    int32
	window time.Duration
	eph    *gotimeout.Map
}

func NewSolutionThrottle(max int, window time.Duration) *SolutionThrottle {
	if max <= 0 {
		max = defaultThrottleMaxFailures
	}
	if window <= 0 {
		window = defaultThrottleWindow
	}
	return &SolutionThrottle{
		max:    int32(max),
		window: window,
		eph:    gotimeout.NewMap(),
	}
}

func sourceIPForRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (t *SolutionThrottle) token(principal string, r *http.Request) string {
	return sourceIPForRequest(r) + "|" + principal
}

// Allow reports whether principal may submit another solution from r's
// source address, counting the attempt.
func (t *SolutionThrottle) Allow(principal string, r *http.Request) bool {
	tok := t.token(principal, r)

	var at *int32
	v, ok := t.eph.Get(tok)
	if v != nil && ok {
		at = v.(*int32)
	} else {
		var n int32
		at = &n
		t.eph.Put(tok, at, t.window)
	}

	if atomic.AddInt32(at, 1) > t.max {
		// renew the penalty window; they have to stop trying to cool off
		t.eph.Put(tok, at, 5*t.window)
		return false
	}

	return true
}

// Forgive clears the failure count after a successful authentication.
func (t *SolutionThrottle) Forgive(principal string, r *http.Request) {
	t.eph.Delete(t.token(principal, r))
}
