package coordinator

import (
	"sync"
	"time"

	"github.com/quietmesh/rfcoord/internal/ramses"
)

// RequestState is the lifecycle of one (device, parameter) request.
type RequestState int

// Request states.
const (
	StateIdle RequestState = iota
	StatePending
	StateResolved
	StateTimedOut
)

func (s RequestState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateTimedOut:
		return "timed_out"
	default:
		return "idle"
	}
}

type paramKey struct {
	device ramses.DeviceID
	param  string
}

type trackerEntry struct {
	state    RequestState
	issuedAt time.Time
	value    string

	// gen identifies the request a timer belongs to. A timer that fires
	// after a newer MarkPending superseded its request compares
	// generations and leaves the entry alone.
	gen   uint64
	timer *time.Timer
}

// RequestTracker tracks the pending/timeout state machine per
// (device, parameter) pair. A new request supersedes an old one rather
// than queuing behind it; a superseded timer firing late is a no-op.
// All methods are safe for concurrent use.
type RequestTracker struct {
	mu      sync.Mutex
	entries map[paramKey]*trackerEntry
}

// NewRequestTracker creates an empty tracker.
func NewRequestTracker() *RequestTracker {
	return &RequestTracker{entries: make(map[paramKey]*trackerEntry)}
}

// MarkPending transitions the pair to Pending and records the issue time.
// Any previously scheduled timeout for the pair is superseded.
func (t *RequestTracker) MarkPending(device ramses.DeviceID, param string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.entry(device, param)
	entry.stopTimer()
	entry.gen++
	entry.state = StatePending
	entry.issuedAt = time.Now()
}

// ScheduleTimeout arms a timer that moves the pair from Pending to
// TimedOut after d, unless a resolve or a newer request lands first.
// The timeout only clears the pending indicator; it does not cancel or
// retry the underlying request.
func (t *RequestTracker) ScheduleTimeout(device ramses.DeviceID, param string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.entry(device, param)
	entry.stopTimer()
	gen := entry.gen
	entry.timer = time.AfterFunc(d, func() {
		t.timeoutFired(device, param, gen)
	})
}

func (t *RequestTracker) timeoutFired(device ramses.DeviceID, param string, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[paramKey{device, param}]
	if !ok || entry.gen != gen || entry.state != StatePending {
		return
	}
	entry.state = StateTimedOut
	entry.timer = nil
}

// Resolve records a matching update for the pair. Only a Pending entry
// transitions to Resolved; resolving an idle or timed-out pair just
// records the value.
func (t *RequestTracker) Resolve(device ramses.DeviceID, param, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.entry(device, param)
	entry.value = value
	if entry.state != StatePending {
		return
	}
	entry.stopTimer()
	entry.gen++
	entry.state = StateResolved
}

// Clear returns the pair to Idle, cancelling any scheduled timeout. Used
// by every error path that runs after a request was marked pending.
func (t *RequestTracker) Clear(device ramses.DeviceID, param string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[paramKey{device, param}]
	if !ok {
		return
	}
	entry.stopTimer()
	entry.gen++
	entry.state = StateIdle
}

// Pending reports whether the pair has an unanswered request.
func (t *RequestTracker) Pending(device ramses.DeviceID, param string) bool {
	return t.State(device, param) == StatePending
}

// State returns the pair's current state.
func (t *RequestTracker) State(device ramses.DeviceID, param string) RequestState {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[paramKey{device, param}]
	if !ok {
		return StateIdle
	}
	return entry.state
}

// Value returns the last resolved value for the pair, if any.
func (t *RequestTracker) Value(device ramses.DeviceID, param string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[paramKey{device, param}]
	if !ok || entry.value == "" {
		return "", false
	}
	return entry.value, true
}

// CancelAll stops every scheduled timer. Called once at shutdown.
func (t *RequestTracker) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entry := range t.entries {
		entry.stopTimer()
		entry.gen++
	}
}

// entry returns the tracked entry for the pair, creating it if needed.
// Callers must hold t.mu.
func (t *RequestTracker) entry(device ramses.DeviceID, param string) *trackerEntry {
	key := paramKey{device, param}
	entry, ok := t.entries[key]
	if !ok {
		entry = &trackerEntry{}
		t.entries[key] = entry
	}
	return entry
}

func (e *trackerEntry) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}
