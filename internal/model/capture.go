package model

import "time"

// Capture kinds.
const (
	KindSnapshot  = "snapshot"
	KindRecording = "recording"
	KindDetection = "detection"
)

// Capture represents a file written from the frame stream.
type Capture struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Kind      string    `json:"kind"`
	Sensor    string    `json:"sensor"`
	Session   string    `json:"session,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
	Frames    int64     `json:"frames"`
}

// CaptureStats contains statistics about stored captures.
type CaptureStats struct {
	TotalCaptures  int            `json:"total_captures"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	PerKind        map[string]int `json:"per_kind"`
	LabelCounts    map[string]int `json:"label_counts"`
}
