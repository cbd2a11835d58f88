package capture

import (
	"context"
	"io"
	"io/ioutil"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialRead(t *testing.T) {
	trigger := NewTrigger()
	s := &SerialTrigger{Word: "detect", Trigger: trigger}
	port := ioutil.NopCloser(strings.NewReader("noise\r\nDETECT\n"))
	assert.Equal(t, io.EOF, s.read(context.Background(), port))
	assert.False(t, trigger.Pending())

	port = ioutil.NopCloser(strings.NewReader("detect\r\ndetect\n"))
	assert.Equal(t, io.EOF, s.read(context.Background(), port))
	assert.True(t, trigger.Pending())
}

func TestSerialRunReopens(t *testing.T) {
	trigger := NewTrigger()
	opened := make(chan struct{}, 10)
	s := &SerialTrigger{
		Device:  "/dev/test",
		Word:    "detect",
		Trigger: trigger,
		Reopen:  time.Millisecond,
		open: func() (io.ReadCloser, error) {
			opened <- struct{}{}
			return ioutil.NopCloser(strings.NewReader("detect\n")), nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	<-opened
	<-opened
	cancel()
	<-done
	require.True(t, trigger.Pending())
}

func TestSerialCancelClosesPort(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	s := &SerialTrigger{Word: "detect", Trigger: NewTrigger()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.read(ctx, r) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("read did not return after cancel")
	}
}
