package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ExampleTop() {
	ds := []Detection{
		{Label: "person", Score: 0.55},
		{Label: "suitcase", Score: 0.91},
		{Label: "dog", Score: 0.3},
	}
	d, ok := Top(ds, 0.5)
	fmt.Println(d.Label, ok)
	_, ok = Top(ds[2:], 0.5)
	fmt.Println(ok)
	// Output:
	// suitcase true
	// false
}

func ExampleCropCenter() {
	img := image.NewRGBA(image.Rect(0, 0, 1280, 960))
	fmt.Println(CropCenter(img, 800).Bounds())
	fmt.Println(CropCenter(img, 2000).Bounds())
	// Output:
	// (0,0)-(800,960)
	// (0,0)-(1280,960)
}

func TestCropCenterPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 10))
	img.Set(30, 5, color.RGBA{255, 0, 0, 255})
	crop := CropCenter(img, 40)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, crop.At(0, 5))
}

func TestCropCenterCopy(t *testing.T) {
	// not an RGBA source
	img := &bounded{image.NewUniform(image.White.C), image.Rect(0, 0, 100, 10)}
	crop := CropCenter(img, 40)
	assert.Equal(t, image.Rect(0, 0, 40, 10), crop.Bounds())
}

type bounded struct {
	*image.Uniform
	r image.Rectangle
}

func (b *bounded) Bounds() image.Rectangle { return b.r }

func TestLabels(t *testing.T) {
	assert.Equal(t, "person", COCO.Name(1))
	assert.Equal(t, "suitcase", COCO.Name(33))
	assert.Equal(t, "class 12", COCO.Name(12))
	assert.Equal(t, "class 500", COCO.Name(500))

	p := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, ioutil.WriteFile(p, []byte("box\n\nparcel\n"), 0600))
	labels, err := LoadLabels(p)
	require.NoError(t, err)
	assert.Equal(t, Labels{"box", "", "parcel"}, labels)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestBoxAnnotator(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 80, 60))
	data, err := BoxAnnotator{}.Annotate(img, Detection{Label: "box", Score: 0.9, Box: image.Rect(10, 10, 50, 40)})
	require.NoError(t, err)
	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestMocks(t *testing.T) {
	cam := &MockCamera{OpenErrs: []error{fmt.Errorf("busy"), nil}}
	assert.Error(t, cam.Open())
	assert.False(t, cam.IsOpen())
	assert.NoError(t, cam.Open())
	assert.True(t, cam.IsOpen())
	_, err := cam.Read()
	assert.NoError(t, err)
	assert.NoError(t, cam.Close())
	opens, reads, closes := cam.Counts()
	assert.Equal(t, []int{2, 1, 1}, []int{opens, reads, closes})

	det := &MockDetector{Detections: []Detection{{Label: "box", Score: 0.4}, {Label: "cat", Score: 0.6}}}
	ds, err := det.Detect(image.NewRGBA(image.Rect(0, 0, 8, 8)), 0.5)
	require.NoError(t, err)
	assert.Equal(t, []Detection{{Label: "cat", Score: 0.6}}, ds)
}
