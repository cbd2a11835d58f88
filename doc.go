// The visionhome delivery camera
//
// Two services, run with "visionhome run capture" and "visionhome run
// collector", usually on different machines.
//
// Capture (camera node)
//
// - GET /detect with X-Device-Key starts a capture cycle, or answers Busy
//
// - Optional serial line trigger (microcontroller, doorbell, PIR)
//
// - Camera is only on for the cycle: 3 second countdown, one frame, SSD
// object detection on the centre crop
//
// - Top detection is reported to the collector and alerted to Telegram,
// Pushbullet or Slack, filtered by an expression
//
// - State changes, countdown and detections published over MQTT
//
// Collector (dashboard backend)
//
// - POST /new_detection stores a record in a CSV file or SQLite
//
// - GET /get_data lists records, most recent first
//
// - GET /ws pushes new records to connected dashboards
//
// Both serve /health and Prometheus /metrics.
package visionhome
