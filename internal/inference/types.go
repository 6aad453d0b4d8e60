// Package inference runs object detection on completed frames, at most one pass
// at a time.
package inference

import (
	"context"
	"image"
	"sensorlink/internal/frame"
	"time"
)

// Candidate is one raw detection in the detector's input coordinate space.
type Candidate struct {
	Box     image.Rectangle
	Score   float32
	ClassID int
}

// Detection is a kept candidate scaled to display coordinates.
type Detection struct {
	Box     image.Rectangle
	Score   float32
	ClassID int
}

// Input is a BGR image at the detector's fixed input geometry, 3 bytes per pixel.
type Input struct {
	Width  int
	Height int
	BGR    []byte
}

// Detector runs a model on a prepared input.
type Detector interface {
	Detect(ctx context.Context, in *Input) ([]Candidate, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, in *Input) ([]Candidate, error)

func (fn DetectorFunc) Detect(ctx context.Context, in *Input) ([]Candidate, error) {
	return fn(ctx, in)
}

// Result is the outcome of one inference pass. Boxes may be empty; Err is set when
// the detector failed, in which case Boxes is empty.
type Result struct {
	Seq        uint64
	StartedAt  time.Time
	FinishedAt time.Time
	Boxes      []Detection
	// Raster is the snapshot the pass ran on.
	Raster *frame.Raster
	Err    error
}

// ResultHandler receives results on the worker goroutine.
type ResultHandler func(*Result)
