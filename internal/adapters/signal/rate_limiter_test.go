package signal

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRoomRateLimiter(3, 10*time.Second)
	rl.now = func() time.Time { return now }

	for i := range 3 {
		if !rl.Allow("k") {
			t.Fatalf("attempt %d rejected", i+1)
		}
	}
	if rl.Allow("k") {
		t.Fatal("fourth attempt inside the window allowed")
	}
	if !rl.Allow("other") {
		t.Error("keys are not independent")
	}

	now = now.Add(11 * time.Second)
	if !rl.Allow("k") {
		t.Error("attempt after the window rejected")
	}
}

func TestRateLimiterPrune(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRoomRateLimiter(1, time.Second)
	rl.now = func() time.Time { return now }
	rl.Allow("a")
	now = now.Add(2 * time.Second)
	rl.Allow("b")
	rl.Prune()
	if _, ok := rl.history["a"]; ok {
		t.Error("stale key kept")
	}
	if _, ok := rl.history["b"]; !ok {
		t.Error("live key pruned")
	}
}
