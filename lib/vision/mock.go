package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MockCamera for testing. Each Open consumes the next entry of OpenErrs.
// OnRead, if set, runs at the start of every Read.
type MockCamera struct {
	mu       sync.Mutex
	OpenErrs []error
	Frame    image.Image
	ReadErr  error
	OnRead   func()
	opened   bool
	opens    int
	closes   int
	reads    int
}

func (self *MockCamera) Open() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.opens++
	if len(self.OpenErrs) > 0 {
		err := self.OpenErrs[0]
		self.OpenErrs = self.OpenErrs[1:]
		if err != nil {
			return err
		}
	}
	self.opened = true
	return nil
}

func (self *MockCamera) Read() (image.Image, error) {
	if self.OnRead != nil {
		self.OnRead()
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	self.reads++
	if self.ReadErr != nil {
		return nil, self.ReadErr
	}
	if self.Frame == nil {
		return image.NewRGBA(image.Rect(0, 0, 1280, 960)), nil
	}
	return self.Frame, nil
}

func (self *MockCamera) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.closes++
	self.opened = false
	return nil
}

// Counts returns how many times Open, Read and Close were called.
func (self *MockCamera) Counts() (opens, reads, closes int) {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.opens, self.reads, self.closes
}

func (self *MockCamera) IsOpen() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.opened
}

// MockDetector returns Detections filtered by threshold, or Err. OnDetect,
// if set, runs before each inference.
type MockDetector struct {
	mu         sync.Mutex
	Detections []Detection
	Err        error
	Sizes      []image.Point
	OnDetect   func()
}

func (self *MockDetector) Detect(img image.Image, threshold float64) ([]Detection, error) {
	if self.OnDetect != nil {
		self.OnDetect()
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Sizes = append(self.Sizes, img.Bounds().Size())
	if self.Err != nil {
		return nil, self.Err
	}
	var ret []Detection
	for _, d := range self.Detections {
		if d.Score >= threshold {
			ret = append(ret, d)
		}
	}
	return ret, nil
}

// BoxAnnotator outlines the detection box, writes the label and score above
// it and encodes a JPEG. Used where the OpenCV renderer is not available.
type BoxAnnotator struct {
	Color color.Color
}

func (self BoxAnnotator) Annotate(img image.Image, d Detection) ([]byte, error) {
	c := self.Color
	if c == nil {
		c = color.RGBA{0, 255, 0, 255}
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	r := d.Box.Intersect(b)
	for x := r.Min.X; x < r.Max.X; x++ {
		dst.Set(x, r.Min.Y, c)
		dst.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dst.Set(r.Min.X, y, c)
		dst.Set(r.Max.X-1, y, c)
	}
	label(dst, r, fmt.Sprintf("%s: %.1f%%", d.Label, d.Score*100), c)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// label draws text just above r, or inside it when r touches the top edge.
func label(dst draw.Image, r image.Rectangle, text string, c color.Color) {
	face := basicfont.Face7x13
	y := r.Min.Y - 4
	if y-face.Ascent < dst.Bounds().Min.Y {
		y = r.Min.Y + face.Ascent + 2
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(r.Min.X+2, y),
	}
	d.DrawString(text)
}
