package util

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ExampleShortDuration() {
	fmt.Println(ShortDuration(5*time.Hour + 59*time.Minute + 59*time.Second))
	// Output: 5h 59m
}

func TestShortDuration(t *testing.T) {
	for _, tc := range []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{500 * time.Nanosecond, "0s"},
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1s"},
		{37*time.Minute + 1*time.Second, "37m 1s"},
		{time.Hour + 30*time.Second, "1h"},
		{26*time.Hour + 30*time.Minute, "1d 2h"},
		{48 * time.Hour, "2d"},
	} {
		assert.Equal(t, tc.want, ShortDuration(tc.d), tc.d.String())
	}
}

func TestSleep(t *testing.T) {
	assert.True(t, Sleep(context.Background(), time.Millisecond))
	assert.True(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.False(t, Sleep(ctx, time.Hour))
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, Sleep(ctx, 0))
}
