package httpx

import (
	"testing"
	"time"
)

func TestBackoffDelayStaysCappedForLargeAttempts(t *testing.T) {
	c := New(Config{Attempts: 50})
	for _, attempt := range []int{1, 10, 35, 40, 63, 120} {
		d := c.backoffDelay(attempt)
		if d <= 0 {
			t.Fatalf("attempt %d: non-positive delay %v", attempt, d)
		}
		if d > maxBackoffDelay+maxBackoffDelay/2 {
			t.Fatalf("attempt %d: delay %v exceeds cap plus jitter", attempt, d)
		}
	}
}

func TestBackoffDelayDoublesBeforeCap(t *testing.T) {
	c := New(Config{BaseDelay: time.Millisecond})
	if d := c.backoffDelay(1); d < time.Millisecond || d > 2*time.Millisecond {
		t.Fatalf("attempt 1 delay %v outside [1ms, 2ms]", d)
	}
	if d := c.backoffDelay(3); d < 4*time.Millisecond || d > 6*time.Millisecond {
		t.Fatalf("attempt 3 delay %v outside [4ms, 6ms]", d)
	}
}
