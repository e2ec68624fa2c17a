package runreg

import "testing"

func TestRegistry_BeginSupersedes(t *testing.T) {
	r := NewRegistry()

	r.Begin("s1", "run-a")
	if !r.IsLive("s1", "run-a") {
		t.Fatal("run-a should be live")
	}

	r.Begin("s1", "run-b")
	if r.IsLive("s1", "run-a") {
		t.Error("run-a should be superseded")
	}
	if !r.IsLive("s1", "run-b") {
		t.Error("run-b should be live")
	}
}

func TestRegistry_SessionsIndependent(t *testing.T) {
	r := NewRegistry()
	r.Begin("s1", "run-a")
	r.Begin("s2", "run-b")

	if !r.IsLive("s1", "run-a") || !r.IsLive("s2", "run-b") {
		t.Error("runs in different sessions should not interfere")
	}
}

func TestRegistry_EndOnlyClearsOwner(t *testing.T) {
	r := NewRegistry()
	r.Begin("s1", "run-a")
	r.Begin("s1", "run-b")

	// A stale run ending must not clobber its successor.
	r.End("s1", "run-a")
	if !r.IsLive("s1", "run-b") {
		t.Error("run-b should still be live after stale End")
	}

	r.End("s1", "run-b")
	if _, ok := r.LiveRun("s1"); ok {
		t.Error("live-run slot should be empty")
	}
}

func TestRegistry_IsLiveUnknownSession(t *testing.T) {
	r := NewRegistry()
	if r.IsLive("nope", "run-a") {
		t.Error("unknown session should never be live")
	}
}
