// Package recording writes completed frames to video files and image snapshots.
package recording

import (
	"errors"
	"fmt"
	"sensorlink/internal/frame"
	"strings"
	"time"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported recording format")
	ErrNotRecording      = errors.New("not recording")
	ErrAlreadyRecording  = errors.New("already recording")
	ErrNoDirectory       = errors.New("save directory is not set")
)

// FrameWriter is an open recording sink.
type FrameWriter interface {
	WriteFrame(r *frame.Raster) error
	Close() error
}

// OpenFunc opens a recording sink for the given file, fourcc codec and geometry.
type OpenFunc func(path, codec string, fps float64, width, height int) (FrameWriter, error)

// SaveFunc writes one raster as an image file.
type SaveFunc func(path string, r *frame.Raster) error

const timestampLayout = "20060102_150405"

var codecs = map[string]string{
	"mp4": "H264",
	"avi": "MJPG",
}

// Codec returns the fourcc used for a container format.
func Codec(format string) (string, error) {
	codec, ok := codecs[strings.ToLower(format)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return codec, nil
}

// FileName builds names like recording_20260314_093000.mp4.
func FileName(prefix string, t time.Time, ext string) string {
	return prefix + "_" + t.Format(timestampLayout) + "." + ext
}
