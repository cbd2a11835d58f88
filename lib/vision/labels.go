package vision

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Labels maps model class ids to names.
type Labels []string

func (self Labels) Name(id int) string {
	if id >= 0 && id < len(self) && self[id] != "" {
		return self[id]
	}
	return fmt.Sprintf("class %d", id)
}

// LoadLabels reads one label per line. Blank lines keep their id unused.
func LoadLabels(path string) (Labels, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening labels")
	}
	defer file.Close()

	var ret Labels
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		ret = append(ret, strings.TrimSpace(scanner.Text()))
	}
	return ret, errors.Wrap(scanner.Err(), "reading labels")
}

// COCO class ids as emitted by the TensorFlow SSD models, id 0 is background.
var COCO = Labels{
	"background", "person", "bicycle", "car", "motorcycle", "airplane", "bus",
	"train", "truck", "boat", "traffic light", "fire hydrant", "", "stop sign",
	"parking meter", "bench", "bird", "cat", "dog", "horse", "sheep", "cow",
	"elephant", "bear", "zebra", "giraffe", "", "backpack", "umbrella", "", "",
	"handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard",
	"tennis racket", "bottle", "", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot",
	"hot dog", "pizza", "donut", "cake", "chair", "couch", "potted plant", "bed",
	"", "dining table", "", "", "toilet", "", "tv", "laptop", "mouse", "remote",
	"keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}
