// Package opencv implements the vision interfaces with gocv: a V4L2 or
// libcamera device through VideoCapture, an SSD detector through the DNN
// module and a JPEG renderer.
package opencv

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Camera opens a video device by index ("0") or by path/url.
type Camera struct {
	Device string
	Width  int
	Height int

	mu      sync.Mutex
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

func (self *Camera) Open() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.capture != nil {
		return nil
	}
	capture, err := gocv.OpenVideoCapture(self.Device)
	if err != nil {
		return errors.Wrapf(err, "opening camera %s", self.Device)
	}
	if !capture.IsOpened() {
		capture.Close()
		return errors.Errorf("camera %s not available", self.Device)
	}
	capture.Set(gocv.VideoCaptureBufferSize, 1)
	if self.Width > 0 && self.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(self.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(self.Height))
	}
	self.capture = capture
	self.frame = gocv.NewMat()
	return nil
}

func (self *Camera) Read() (image.Image, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.capture == nil {
		return nil, errors.New("camera not open")
	}
	if ok := self.capture.Read(&self.frame); !ok || self.frame.Empty() {
		return nil, errors.Errorf("camera %s: no frame", self.Device)
	}
	img, err := self.frame.ToImage()
	return img, errors.Wrap(err, "converting frame")
}

func (self *Camera) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.capture == nil {
		return nil
	}
	self.frame.Close()
	err := self.capture.Close()
	self.capture = nil
	return err
}
