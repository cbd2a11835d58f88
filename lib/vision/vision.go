// Package vision defines the camera and object detection model used by the
// capture loop, independent of the OpenCV bindings in vision/opencv.
package vision

import (
	"image"
	"image/draw"
)

// Detection is one object found by a Detector. Score is in [0, 1] and Box
// is in the coordinates of the image passed to Detect.
type Detection struct {
	Label string
	Score float64
	Box   image.Rectangle
}

// Camera is opened for a single capture cycle and closed afterwards.
type Camera interface {
	Open() error
	Read() (image.Image, error)
	Close() error
}

// Detector runs a pretrained model over an image, returning detections with
// a score of at least threshold.
type Detector interface {
	Detect(img image.Image, threshold float64) ([]Detection, error)
}

// Annotator renders the detection onto the image, returning a JPEG.
type Annotator interface {
	Annotate(img image.Image, d Detection) ([]byte, error)
}

// Top returns the highest scoring detection at or above threshold.
func Top(ds []Detection, threshold float64) (Detection, bool) {
	var best Detection
	found := false
	for _, d := range ds {
		if d.Score < threshold {
			continue
		}
		if !found || d.Score > best.Score {
			best = d
			found = true
		}
	}
	return best, found
}

// CropCenter keeps a horizontally centred band of the given width and the
// full height, as a new image with its origin at (0, 0) so detection boxes
// and drawing share coordinates. Images narrower than width are returned
// unchanged.
func CropCenter(img image.Image, width int) image.Image {
	b := img.Bounds()
	if width <= 0 || b.Dx() <= width {
		return img
	}
	x := b.Min.X + (b.Dx()-width)/2
	dst := image.NewRGBA(image.Rect(0, 0, width, b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(x, b.Min.Y), draw.Src)
	return dst
}
