package util

import (
	"context"
	"fmt"
	"time"
)

var units = []struct {
	size   time.Duration
	suffix string
}{
	{24 * time.Hour, "d"},
	{time.Hour, "h"},
	{time.Minute, "m"},
	{time.Second, "s"},
}

// ShortDuration formats d with at most two adjacent units, e.g. "5h 59m",
// "2d" or "500ms".
func ShortDuration(d time.Duration) string {
	for i, u := range units {
		if d < u.size {
			continue
		}
		s := fmt.Sprintf("%d%s", d/u.size, u.suffix)
		if i+1 < len(units) {
			next := units[i+1]
			if n := (d % u.size) / next.size; n > 0 {
				s += fmt.Sprintf(" %d%s", n, next.suffix)
			}
		}
		return s
	}
	if d >= time.Millisecond {
		return fmt.Sprintf("%dms", d/time.Millisecond)
	}
	return "0s"
}

// Sleep pauses for d, returning false early if ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
