package coordinator

import (
	"testing"
	"time"
)

func TestTrackerTimeoutClearsPending(t *testing.T) {
	tr := NewRequestTracker()
	tr.MarkPending("32:153289", "4E")
	tr.ScheduleTimeout("32:153289", "4E", 10*time.Millisecond)

	if !tr.Pending("32:153289", "4E") {
		t.Fatal("pair not pending after MarkPending")
	}

	deadline := time.After(time.Second)
	for tr.State("32:153289", "4E") != StateTimedOut {
		select {
		case <-deadline:
			t.Fatal("timeout never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if tr.Pending("32:153289", "4E") {
		t.Error("pair still pending after timeout")
	}
}

func TestTrackerResolveBeatsTimer(t *testing.T) {
	tr := NewRequestTracker()
	tr.MarkPending("32:153289", "4E")
	tr.ScheduleTimeout("32:153289", "4E", 20*time.Millisecond)

	tr.Resolve("32:153289", "4E", "0A")

	if got := tr.State("32:153289", "4E"); got != StateResolved {
		t.Fatalf("state = %v after resolve, want resolved", got)
	}

	// Even if the timer fires despite the best-effort cancel, the state
	// must stay resolved.
	time.Sleep(50 * time.Millisecond)
	if got := tr.State("32:153289", "4E"); got != StateResolved {
		t.Errorf("state = %v after late timer, want resolved", got)
	}

	value, ok := tr.Value("32:153289", "4E")
	if !ok || value != "0A" {
		t.Errorf("Value() = (%q, %v), want (0A, true)", value, ok)
	}
}

func TestTrackerSupersededTimerIsNoOp(t *testing.T) {
	tr := NewRequestTracker()
	tr.MarkPending("32:153289", "4E")
	tr.ScheduleTimeout("32:153289", "4E", 10*time.Millisecond)

	// A newer request supersedes the first timer before it fires.
	tr.MarkPending("32:153289", "4E")
	tr.ScheduleTimeout("32:153289", "4E", time.Minute)

	time.Sleep(50 * time.Millisecond)
	if got := tr.State("32:153289", "4E"); got != StatePending {
		t.Errorf("state = %v, want pending to survive the superseded timer", got)
	}
}

func TestTrackerClear(t *testing.T) {
	tr := NewRequestTracker()
	tr.MarkPending("32:153289", "4E")
	tr.ScheduleTimeout("32:153289", "4E", time.Minute)

	tr.Clear("32:153289", "4E")
	if got := tr.State("32:153289", "4E"); got != StateIdle {
		t.Errorf("state = %v after Clear, want idle", got)
	}
}

func TestTrackerPairsAreIndependent(t *testing.T) {
	tr := NewRequestTracker()
	tr.MarkPending("32:153289", "4E")
	tr.MarkPending("32:153289", "4F")

	tr.Resolve("32:153289", "4E", "01")

	if tr.State("32:153289", "4E") != StateResolved {
		t.Error("resolved pair not resolved")
	}
	if tr.State("32:153289", "4F") != StatePending {
		t.Error("unrelated pair lost its pending state")
	}
}
