package proof

import (
	"math"
	"time"
)

// DefaultTolerance is how far a claimed request time may drift from server time.
const DefaultTolerance = 300 * time.Second

// Window accepts request times within Tolerance of the server clock. It does
// not stop a proof from being replayed inside the window; see SeenCache.
type Window struct {
	now       func() time.Time
	tolerance time.Duration
}

// NewWindow creates a window. A nil clock means time.Now, a non-positive
// tolerance means DefaultTolerance.
func NewWindow(now func() time.Time, tolerance time.Duration) Window {
	if now == nil {
		now = time.Now
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return Window{now: now, tolerance: tolerance}
}

// InWindow reports whether claimedMs (Unix milliseconds) is within tolerance
// of now. NaN and infinities are never in window.
func (w Window) InWindow(claimedMs float64) bool {
	if math.IsNaN(claimedMs) || math.IsInf(claimedMs, 0) {
		return false
	}
	nowMs := float64(w.clock()().UnixMilli())
	return math.Abs(claimedMs-nowMs) <= float64(w.tol().Milliseconds())
}

// Tolerance returns the configured acceptance window.
func (w Window) Tolerance() time.Duration {
	return w.tol()
}

func (w Window) clock() func() time.Time {
	if w.now == nil {
		return time.Now
	}
	return w.now
}

func (w Window) tol() time.Duration {
	if w.tolerance <= 0 {
		return DefaultTolerance
	}
	return w.tolerance
}
