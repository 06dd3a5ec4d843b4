package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

// captureStatus sends status lines to a buffer for the test.
func captureStatus(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := statusOut
	statusOut = &buf
	t.Cleanup(func() { statusOut = prev })
	return &buf
}

func TestSpinnerShowsScopeProgress(t *testing.T) {
	buf := captureStatus(t)
	s := newSpinner("Solving compile (1/2)...")
	s.animate = true
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Update("Solving runtime (2/2)...")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	out := buf.String()
	for _, want := range []string{"Solving compile (1/2)...", "Solving runtime (2/2)..."} {
		if !strings.Contains(out, want) {
			t.Errorf("spinner output missing %q: %q", want, out)
		}
	}
	if !strings.HasSuffix(out, "\r") {
		t.Errorf("spinner did not clear its line: %q", out)
	}
}

func TestSpinnerSilentWhenPiped(t *testing.T) {
	buf := captureStatus(t)
	s := newSpinner("Solving compile (1/1)...")
	if s.animate {
		t.Fatal("spinner animates on a buffer")
	}
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.StopWithSuccess("Solved 1 scopes")

	if got := buf.String(); strings.Contains(got, "Solving") || !strings.Contains(got, "Solved 1 scopes") {
		t.Errorf("status output = %q, want only the final line", got)
	}
}

func TestSpinnerStopWithError(t *testing.T) {
	buf := captureStatus(t)
	s := newSpinner("Solving test (1/1)...")
	s.Start()
	s.StopWithError("Could not solve test")
	if !strings.Contains(buf.String(), "Could not solve test") {
		t.Errorf("status output = %q", buf.String())
	}
}

func TestSpinnerCancelled(t *testing.T) {
	captureStatus(t)
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinnerWithContext(ctx, "Solving compile (1/1)...")
	s.Start()
	if s.Cancelled() {
		t.Error("Cancelled() = true before the context ended")
	}
	cancel()
	s.Stop()
	if !s.Cancelled() {
		t.Error("Cancelled() = false after the context ended")
	}

	done := newSpinner("Solving runtime (1/1)...")
	done.Start()
	done.Stop()
	if done.Cancelled() {
		t.Error("Cancelled() = true after a plain Stop")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	captureStatus(t)
	s := newSpinner("Solving build (1/1)...")
	s.Stop() // before Start
	s.Stop()

	started := newSpinner("Solving build (1/1)...")
	started.Start()
	started.Stop()
	started.Stop()
}
