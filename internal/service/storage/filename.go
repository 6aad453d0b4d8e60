package storage

import (
	"fmt"
	"path/filepath"
	"sensorlink/internal/model"
	"strings"
	"time"
)

// recordingLayout matches recording.FileName.
const recordingLayout = "20060102_150405"

// ParseCaptureFilename recovers the capture metadata encoded in a file name
// written by the detection buffer, the snapshotter or the recorder. Detection
// labels are returned separately. Sensor names are assumed not to contain '_'.
func ParseCaptureFilename(filename string) (*model.Capture, []string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(name, "_")

	if len(parts) < 3 {
		return nil, nil, fmt.Errorf("invalid filename format: %s", filename)
	}

	c := &model.Capture{Filename: filename, Frames: 1}
	layout := recordingLayout

	switch {
	case parts[0] == model.KindDetection && ext == ".jpg":
		if len(parts) < 4 {
			return nil, nil, fmt.Errorf("invalid detection filename: %s", filename)
		}
		c.Kind = model.KindDetection
		layout = timestampLayout
	case parts[0] == model.KindSnapshot && ext == ".png":
		c.Kind = model.KindSnapshot
	case parts[0] == model.KindRecording && (ext == ".mp4" || ext == ".avi"):
		c.Kind = model.KindRecording
		c.Frames = 0
	default:
		return nil, nil, fmt.Errorf("unknown capture file: %s", filename)
	}

	timestamp, err := time.ParseInLocation(layout, parts[1]+"_"+parts[2], time.Local)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	c.Timestamp = timestamp

	var labels []string
	if c.Kind == model.KindDetection {
		c.Sensor = parts[3]
		for _, part := range parts[4:] {
			for _, label := range strings.Split(part, "-") {
				if label != "" {
					labels = append(labels, label)
				}
			}
		}
	}

	return c, labels, nil
}
