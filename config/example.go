package config

import "strings"

var ExampleYaml = `
capture:
  port: 5000
  key: trigger-secret
  collector_url: http://192.168.1.37:8000
  collector_key: collector-secret
  camera:
    device: "0"
    crop: 800
  model:
    path: ~/models/frozen_inference_graph.pb
    config: ~/models/ssd_mobilenet_v2_coco.pbtxt
    threshold: 0.5
  serial:
    device: /dev/ttyACM0
  timing:
    countdown: 3
    tick: 1s
collector:
  port: 8000
  key: collector-secret
  store: csv
  path: log_detections.csv
  allowed_origins: [http://localhost:3000]
dispatch:
  workers: 2
  queue: 16
  report: 3s
  alert: 10s
alert:
  when: confidence >= 60
endpoints:
  mqtt:
    broker: tcp://127.0.0.1:1883
telegram:
  token: 123456:ABC
  chat_id: 1144391963
`

var ExampleConfig = Must(OpenReader(strings.NewReader(ExampleYaml)))
