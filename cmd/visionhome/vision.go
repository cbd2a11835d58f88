package main

import (
	"github.com/smartvision/visionhome/config"
	"github.com/smartvision/visionhome/lib/vision"
	"github.com/smartvision/visionhome/lib/vision/opencv"
)

// openVision loads the model once at startup; the camera is opened per
// cycle by the loop.
func openVision(conf *config.Config) (vision.Camera, vision.Detector, vision.Annotator, error) {
	c := conf.Capture
	labels := vision.COCO
	if c.Model.Labels != "" {
		var err error
		if labels, err = vision.LoadLabels(c.Model.Labels); err != nil {
			return nil, nil, nil, err
		}
	}
	detector, err := opencv.NewDetector(c.Model.Path, c.Model.Config, labels)
	if err != nil {
		return nil, nil, nil, err
	}
	camera := &opencv.Camera{Device: c.Camera.Device, Width: c.Camera.Width, Height: c.Camera.Height}
	return camera, detector, opencv.Annotator{}, nil
}
