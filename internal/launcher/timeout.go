package launcher

import (
	"fmt"
	"strconv"
	"time"
)

// RequestTimeout is the per-request deadline for the application server.
// The unbounded state is explicit rather than a zero sentinel so callers
// cannot misread "no timeout" as "timeout of zero".
type RequestTimeout struct {
	d         time.Duration
	unbounded bool
}

// Unbounded returns a timeout that never terminates a request. Long-lived
// requests (streaming responses, slow model calls) run indefinitely.
func Unbounded() RequestTimeout {
	return RequestTimeout{unbounded: true}
}

// Bounded returns a timeout of the given whole number of seconds.
func Bounded(seconds int) (RequestTimeout, error) {
	if seconds <= 0 {
		return RequestTimeout{}, fmt.Errorf("bounded timeout must be positive, got %d", seconds)
	}
	return RequestTimeout{d: time.Duration(seconds) * time.Second}, nil
}

// BoundedDuration returns a timeout of an arbitrary positive duration.
func BoundedDuration(d time.Duration) (RequestTimeout, error) {
	if d <= 0 {
		return RequestTimeout{}, fmt.Errorf("bounded timeout must be positive, got %s", d)
	}
	return RequestTimeout{d: d}, nil
}

// ParseTimeout parses the configured timeout value in seconds. "0" means
// the timeout is disabled; negative values are rejected.
func ParseTimeout(seconds int) (RequestTimeout, error) {
	if seconds < 0 {
		return RequestTimeout{}, fmt.Errorf("request timeout must be >= 0 seconds, got %d", seconds)
	}
	if seconds == 0 {
		return Unbounded(), nil
	}
	return Bounded(seconds)
}

// IsUnbounded reports whether requests run without a deadline.
func (t RequestTimeout) IsUnbounded() bool {
	return t.unbounded
}

// Duration returns the deadline for bounded timeouts and 0 for unbounded.
func (t RequestTimeout) Duration() time.Duration {
	if t.unbounded {
		return 0
	}
	return t.d
}

// Arg renders the timeout the way the server CLI expects it: whole
// seconds, with 0 disabling the timeout entirely.
func (t RequestTimeout) Arg() string {
	if t.unbounded {
		return "0"
	}
	return strconv.Itoa(int(t.d / time.Second))
}

func (t RequestTimeout) String() string {
	if t.unbounded {
		return "unbounded"
	}
	return t.d.String()
}
