package opencv

import (
	"image"
	"image/color"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/smartvision/visionhome/lib/vision"
)

// Detector runs an SSD style network (e.g. MobileNet SSD trained on COCO)
// whose output rows are [batch, class, score, left, top, right, bottom].
type Detector struct {
	mu     sync.Mutex
	net    gocv.Net
	labels vision.Labels
}

func NewDetector(model, config string, labels vision.Labels) (*Detector, error) {
	if _, err := os.Stat(model); err != nil {
		return nil, errors.Wrap(err, "model")
	}
	if config != "" {
		if _, err := os.Stat(config); err != nil {
			return nil, errors.Wrap(err, "model config")
		}
	}
	net := gocv.ReadNet(model, config)
	if net.Empty() {
		return nil, errors.Errorf("failed to load network %s", model)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "setting backend")
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "setting target")
	}
	if labels == nil {
		labels = vision.COCO
	}
	return &Detector{net: net, labels: labels}, nil
}

func (self *Detector) Detect(img image.Image, threshold float64) ([]vision.Detection, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, errors.Wrap(err, "converting image")
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("empty image")
	}

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	self.mu.Lock()
	self.net.SetInput(blob, "")
	output := self.net.Forward("")
	self.mu.Unlock()
	defer output.Close()

	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	cols := float32(mat.Cols())
	height := float32(mat.Rows())
	var ret []vision.Detection
	for i := 0; i < rows.Rows(); i++ {
		score := float64(rows.GetFloatAt(i, 2))
		if score < threshold {
			continue
		}
		class := int(rows.GetFloatAt(i, 1))
		box := image.Rect(
			int(rows.GetFloatAt(i, 3)*cols),
			int(rows.GetFloatAt(i, 4)*height),
			int(rows.GetFloatAt(i, 5)*cols),
			int(rows.GetFloatAt(i, 6)*height),
		)
		ret = append(ret, vision.Detection{Label: self.labels.Name(class), Score: score, Box: box})
	}
	return ret, nil
}

func (self *Detector) Close() error {
	return self.net.Close()
}

var green = color.RGBA{0, 255, 0, 0}

// Annotator draws the box and label and encodes a JPEG.
type Annotator struct{}

func (Annotator) Annotate(img image.Image, d vision.Detection) ([]byte, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, errors.Wrap(err, "converting image")
	}
	defer mat.Close()

	gocv.Rectangle(&mat, d.Box, green, 3)
	label := d.Label
	origin := image.Pt(d.Box.Min.X, d.Box.Min.Y-10)
	if origin.Y < 20 {
		origin.Y = d.Box.Min.Y + 30
	}
	gocv.PutText(&mat, label, origin, gocv.FontHersheySimplex, 1.0, green, 2)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, errors.Wrap(err, "encoding jpeg")
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
