package capture

import (
	"bufio"
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/tarm/serial"

	"github.com/smartvision/visionhome/util"
)

// SerialTrigger fires the trigger when a line equal to Word arrives on a
// serial port, e.g. from a microcontroller wired to a doorbell or PIR.
type SerialTrigger struct {
	Device  string
	Baud    int
	Word    string
	Trigger *Trigger
	Reopen  time.Duration

	open func() (io.ReadCloser, error)
}

func (self *SerialTrigger) openPort() (io.ReadCloser, error) {
	if self.open != nil {
		return self.open()
	}
	return serial.OpenPort(&serial.Config{Name: self.Device, Baud: self.Baud})
}

// Run reads the port until ctx is cancelled, reopening it after errors.
func (self *SerialTrigger) Run(ctx context.Context) {
	reopen := self.Reopen
	if reopen <= 0 {
		reopen = 5 * time.Second
	}
	for ctx.Err() == nil {
		port, err := self.openPort()
		if err != nil {
			log.Printf("serial: opening %s: %s", self.Device, err)
		} else {
			log.Println("serial: listening on", self.Device)
			if err := self.read(ctx, port); err != nil {
				log.Printf("serial: reading %s: %s", self.Device, err)
			}
		}
		if !util.Sleep(ctx, reopen) {
			return
		}
	}
}

func (self *SerialTrigger) read(ctx context.Context, port io.ReadCloser) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		port.Close()
	}()

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != self.Word {
			continue
		}
		if self.Trigger.Fire() {
			log.Println("serial: trigger accepted")
		} else {
			log.Println("serial: busy, trigger ignored")
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}
