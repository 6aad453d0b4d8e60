package recording

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sensorlink/internal/frame"
	"sensorlink/internal/logger"
	"sensorlink/internal/metrics"
	"sensorlink/internal/model"
	"sensorlink/internal/repository"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session describes an active or finished recording.
type Session struct {
	ID        string
	Path      string
	Format    string
	StartedAt time.Time
	Frames    int64

	captureID int64
}

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	Width  int
	Height int
	Sensor string
}

// Recorder writes every completed frame to a video file while active. It is a
// frame listener, so writes happen on the assembler goroutine.
type Recorder struct {
	open     OpenFunc
	captures repository.CaptureRepository
	opts     RecorderOptions
	logger   *logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	writer  FrameWriter
	session *Session

	listenersMu sync.RWMutex
	listeners   []func(recording bool)
}

// NewRecorder creates a recorder. captures may be nil, in which case recordings
// are not indexed.
func NewRecorder(open OpenFunc, captures repository.CaptureRepository, opts RecorderOptions, logger *logger.Logger) *Recorder {
	return &Recorder{
		open:     open,
		captures: captures,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// OnStateChange registers a callback for recording started (true) and stopped or
// failed to start (false).
func (r *Recorder) OnStateChange(fn func(recording bool)) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Recorder) emit(recording bool) {
	r.listenersMu.RLock()
	listeners := r.listeners
	r.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(recording)
	}
}

// Recording reports whether a recording is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer != nil
}

// Session returns a copy of the active session, or nil.
func (r *Recorder) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	s := *r.session
	return &s
}

// Start opens recording_<timestamp>.<format> in dir, creating dir if needed.
func (r *Recorder) Start(dir, format string, fps int) (*Session, error) {
	session, err := r.start(dir, format, fps)
	if err != nil {
		r.logger.Error("Failed to start recording: %v", err)
		// The running session is untouched, so viewers keep their state.
		if !errors.Is(err, ErrAlreadyRecording) {
			r.emit(false)
		}
		return nil, err
	}

	r.logger.Info("Recording started: %s (session %s)", session.Path, session.ID)
	r.emit(true)
	return session, nil
}

func (r *Recorder) start(dir, format string, fps int) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer != nil {
		return nil, ErrAlreadyRecording
	}
	if dir == "" {
		return nil, ErrNoDirectory
	}
	format = strings.ToLower(format)
	codec, err := Codec(format)
	if err != nil {
		return nil, err
	}
	if fps <= 0 {
		return nil, fmt.Errorf("invalid frame rate: %d", fps)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	startedAt := r.now()
	path := filepath.Join(dir, FileName("recording", startedAt, format))

	writer, err := r.open(path, codec, float64(fps), r.opts.Width, r.opts.Height)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	session := &Session{
		ID:        uuid.NewString(),
		Path:      path,
		Format:    format,
		StartedAt: startedAt,
	}

	if r.captures != nil {
		id, err := r.captures.Insert(&model.Capture{
			Filename:  filepath.Base(path),
			Kind:      model.KindRecording,
			Sensor:    r.opts.Sensor,
			Session:   session.ID,
			Timestamp: startedAt,
			FilePath:  path,
		})
		if err != nil {
			r.logger.Warning("Failed to index recording %s: %v", path, err)
		}
		session.captureID = id
	}

	r.writer = writer
	r.session = session
	s := *session
	return &s, nil
}

// Stop closes the active recording and returns its final session.
func (r *Recorder) Stop() (*Session, error) {
	r.mu.Lock()
	if r.writer == nil {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	writer, session := r.writer, r.session
	r.writer, r.session = nil, nil
	r.mu.Unlock()

	if err := writer.Close(); err != nil {
		r.logger.Warning("Failed to close recording %s: %v", session.Path, err)
	}

	if r.captures != nil && session.captureID > 0 {
		var size int64
		if info, err := os.Stat(session.Path); err == nil {
			size = info.Size()
		}
		if err := r.captures.UpdateSize(session.captureID, size, session.Frames); err != nil {
			r.logger.Warning("Failed to update recording %s: %v", session.Path, err)
		}
	}

	r.logger.Info("Recording stopped: %s (%d frames)", session.Path, session.Frames)
	r.emit(false)
	return session, nil
}

// Toggle stops an active recording or starts a new one, and reports whether a
// recording is active afterwards.
func (r *Recorder) Toggle(dir, format string, fps int) (bool, error) {
	if r.Recording() {
		if _, err := r.Stop(); err != nil {
			return r.Recording(), err
		}
		return false, nil
	}
	if _, err := r.Start(dir, format, fps); err != nil {
		return false, err
	}
	return true, nil
}

// FrameCompleted writes the frame when a recording is active. Write failures are
// logged and counted.
func (r *Recorder) FrameCompleted(f *frame.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer == nil {
		return
	}

	if err := r.writer.WriteFrame(f.Raster); err != nil {
		metrics.RecordRecorderFrame(false)
		r.logger.Warning("Frame %d not written to %s: %v", f.Seq, r.session.Path, err)
		return
	}
	metrics.RecordRecorderFrame(true)
	r.session.Frames++
}
