package dto

import "time"

// DetectionResult is one detected object in display coordinates.
type DetectionResult struct {
	ClassID    int
	Label      string
	Confidence float64
	X          int
	Y          int
	Width      int
	Height     int
}

// BufferedCapture holds an annotated frame and its detections before flushing to disk.
type BufferedCapture struct {
	Timestamp  time.Time
	Sensor     string
	Detections []DetectionResult
	Data       []byte
}
