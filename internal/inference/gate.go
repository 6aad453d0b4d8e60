package inference

import (
	"context"
	"fmt"
	"sensorlink/internal/frame"
	"sensorlink/internal/logger"
	"sensorlink/internal/metrics"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
)

// Options configures a Gate.
type Options struct {
	// InputSize is the square input geometry of the detector. Zero keeps the
	// snapshot size.
	InputSize           int
	ConfidenceThreshold float32
	NMSScoreThreshold   float32
	NMSIoUThreshold     float32
	// BoxScale maps detector coordinates to display coordinates.
	BoxScale int
}

// DefaultOptions matches the 416x416 YOLO model and the 2x preview.
func DefaultOptions() Options {
	return Options{
		InputSize:           416,
		ConfidenceThreshold: 0.85,
		NMSScoreThreshold:   0.3,
		NMSIoUThreshold:     0.5,
		BoxScale:            2,
	}
}

// Gate dispatches detection passes on the latest snapshot with at most one pass in
// flight. Notifications arriving while a pass runs are dropped, not queued.
type Gate struct {
	detector Detector
	buffer   *SnapshotBuffer
	opts     Options
	filters  []Postprocessor
	logger   *logger.Logger

	busy atomic.Bool
	seq  atomic.Uint64
	wg   sync.WaitGroup

	mu       sync.RWMutex
	ctx      context.Context
	handlers []ResultHandler
}

// NewGate returns a gate reading from buffer and running detector.
func NewGate(detector Detector, buffer *SnapshotBuffer, opts Options, logger *logger.Logger) *Gate {
	if opts.BoxScale <= 0 {
		opts.BoxScale = 1
	}
	return &Gate{
		detector: detector,
		buffer:   buffer,
		opts:     opts,
		filters: []Postprocessor{
			NewScoreFilter(opts.ConfidenceThreshold),
			NewNMSFilter(opts.NMSScoreThreshold, opts.NMSIoUThreshold),
		},
		logger: logger,
		ctx:    context.Background(),
	}
}

// OnResult registers a handler for pass results.
func (g *Gate) OnResult(h ResultHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers = append(g.handlers, h)
}

// Run binds passes to ctx and blocks until it is done, then waits for the pass in
// flight to finish.
func (g *Gate) Run(ctx context.Context) error {
	g.mu.Lock()
	g.ctx = ctx
	g.mu.Unlock()

	<-ctx.Done()
	g.Wait()
	g.logger.Info("Inference gate stopped")
	return nil
}

// FrameCompleted loads the frame into the snapshot buffer and requests a pass.
func (g *Gate) FrameCompleted(f *frame.Frame) {
	g.buffer.Load(f.Raster)
	g.NotifyFrameReady()
}

// NotifyFrameReady starts a pass unless one is already running. It reports whether
// a pass was started.
func (g *Gate) NotifyFrameReady() bool {
	if !g.busy.CompareAndSwap(false, true) {
		metrics.RecordInferenceSkipped()
		return false
	}

	g.mu.RLock()
	ctx := g.ctx
	g.mu.RUnlock()

	g.wg.Add(1)
	go g.run(ctx, g.seq.Add(1))
	return true
}

// Busy reports whether a pass is in flight.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}

// Wait blocks until the pass in flight, if any, has finished.
func (g *Gate) Wait() {
	g.wg.Wait()
}

func (g *Gate) run(ctx context.Context, seq uint64) {
	defer g.wg.Done()
	defer g.busy.Store(false)
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Inference pass %d panicked: %v", seq, r)
		}
	}()

	started := time.Now()
	snapshot := g.buffer.Copy()
	if snapshot.Empty() {
		metrics.RecordInference(metrics.InferenceAborted, 0)
		return
	}

	result := &Result{Seq: seq, StartedAt: started, Raster: snapshot}
	candidates, err := g.detect(ctx, prepare(snapshot, g.opts.InputSize))
	if err != nil {
		g.logger.Error("Detection failed: %v", err)
		result.Err = err
		candidates = nil
	}

	for _, filter := range g.filters {
		candidates = filter(candidates)
	}
	result.Boxes = Scale(candidates, g.opts.BoxScale)
	result.FinishedAt = time.Now()

	outcome := metrics.InferenceOK
	if result.Err != nil {
		outcome = metrics.InferenceError
	}
	metrics.RecordInference(outcome, result.FinishedAt.Sub(started))

	g.mu.RLock()
	handlers := g.handlers
	g.mu.RUnlock()
	for _, h := range handlers {
		h(result)
	}
}

// detect calls the detector, turning a panic into an error.
func (g *Gate) detect(ctx context.Context, in *Input) (candidates []Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			candidates = nil
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()
	return g.detector.Detect(ctx, in)
}

// prepare resizes the raster to size x size and reorders channels to BGR.
func prepare(r *frame.Raster, size int) *Input {
	img := r.Image()
	if size > 0 && (r.Width != size || r.Height != size) {
		img = imaging.Resize(img, size, size, imaging.Linear)
	}

	b := img.Bounds()
	in := &Input{
		Width:  b.Dx(),
		Height: b.Dy(),
		BGR:    make([]byte, b.Dx()*b.Dy()*3),
	}
	for y := 0; y < in.Height; y++ {
		row := img.Pix[y*img.Stride:]
		out := in.BGR[y*in.Width*3:]
		for x := 0; x < in.Width; x++ {
			out[x*3] = row[x*4+2]
			out[x*3+1] = row[x*4+1]
			out[x*3+2] = row[x*4]
		}
	}
	return in
}
