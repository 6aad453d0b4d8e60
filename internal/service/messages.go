package service

import "sensorlink/internal/dto"

// Viewer message types.
const (
	MessageFrame      = "frame"
	MessageDetections = "detections"
	MessageStatus     = "status"
	MessageRecording  = "recording"
)

type frameMessage struct {
	Type  string `json:"type"`
	Seq   uint64 `json:"seq"`
	Image string `json:"image"` // base64 JPEG
}

type boxMessage struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Score  float32 `json:"score"`
	Label  string  `json:"label"`
}

type detectionsMessage struct {
	Type  string       `json:"type"`
	Seq   uint64       `json:"seq"`
	Boxes []boxMessage `json:"boxes"`
	Error string       `json:"error,omitempty"`
}

type statusMessage struct {
	Type   string     `json:"type"`
	Status dto.Status `json:"status"`
}

type recordingMessage struct {
	Type      string `json:"type"`
	Recording bool   `json:"recording"`
}
