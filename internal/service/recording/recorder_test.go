package recording

import (
	"errors"
	"os"
	"path/filepath"
	"sensorlink/internal/dto"
	"sensorlink/internal/frame"
	"sensorlink/internal/logger"
	"sensorlink/internal/model"
	"sensorlink/internal/repository/sqlite"
	"sync"
	"testing"
	"time"
)

type fakeWriter struct {
	mu      sync.Mutex
	path    string
	frames  int
	failing bool
	closed  bool
}

func (w *fakeWriter) WriteFrame(r *frame.Raster) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failing {
		return errors.New("disk full")
	}
	w.frames++
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return os.WriteFile(w.path, make([]byte, w.frames), 0644)
}

type fakeOpener struct {
	codec  string
	fps    float64
	width  int
	height int
	writer *fakeWriter
	err    error
}

func (o *fakeOpener) open(path, codec string, fps float64, width, height int) (FrameWriter, error) {
	if o.err != nil {
		return nil, o.err
	}
	o.codec, o.fps, o.width, o.height = codec, fps, width, height
	o.writer = &fakeWriter{path: path}
	return o.writer, nil
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 5, 0, time.Local)
}

func newTestRecorder(t *testing.T, opener *fakeOpener) (*Recorder, *sqlite.CaptureRepository) {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	captures := sqlite.NewCaptureRepository(db)
	r := NewRecorder(opener.open, captures, RecorderOptions{Width: 4, Height: 3, Sensor: "bench"}, logger.Discard())
	r.now = fixedClock
	return r, captures
}

func testFrame(seq uint64) *frame.Frame {
	return &frame.Frame{Seq: seq, Raster: frame.NewRaster(4, 3)}
}

func TestCodec(t *testing.T) {
	tests := []struct {
		format string
		codec  string
		err    bool
	}{
		{"mp4", "H264", false},
		{"MP4", "H264", false},
		{"avi", "MJPG", false},
		{"mkv", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		codec, err := Codec(tt.format)
		if codec != tt.codec || (err != nil) != tt.err {
			t.Errorf("Codec(%q) = (%q, %v)", tt.format, codec, err)
		}
		if err != nil && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Codec(%q) error should wrap ErrUnsupportedFormat", tt.format)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("recording", fixedClock(), "mp4"); got != "recording_20260314_093005.mp4" {
		t.Errorf("Unexpected file name %s", got)
	}
}

func TestRecorder_StartWriteStop(t *testing.T) {
	opener := &fakeOpener{}
	r, captures := newTestRecorder(t, opener)
	dir := filepath.Join(t.TempDir(), "new", "dir")

	var states []bool
	r.OnStateChange(func(recording bool) { states = append(states, recording) })

	r.FrameCompleted(testFrame(1))

	session, err := r.Start(dir, "mp4", 30)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if session.Path != filepath.Join(dir, "recording_20260314_093005.mp4") {
		t.Errorf("Unexpected path %s", session.Path)
	}
	if session.ID == "" {
		t.Error("Expected a session ID")
	}
	if opener.codec != "H264" || opener.fps != 30 || opener.width != 4 || opener.height != 3 {
		t.Errorf("Unexpected open parameters: %+v", opener)
	}
	if !r.Recording() {
		t.Fatal("Expected recording to be active")
	}

	for i := uint64(2); i <= 4; i++ {
		r.FrameCompleted(testFrame(i))
	}

	done, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if done.Frames != 3 || opener.writer.frames != 3 {
		t.Errorf("Expected 3 frames written, got session=%d writer=%d", done.Frames, opener.writer.frames)
	}
	if !opener.writer.closed {
		t.Error("Writer not closed")
	}

	if len(states) != 2 || !states[0] || states[1] {
		t.Errorf("Unexpected state events %v", states)
	}

	c, err := captures.GetByFilename("recording_20260314_093005.mp4")
	if err != nil || c == nil {
		t.Fatalf("Recording not indexed: %v", err)
	}
	if c.Kind != model.KindRecording || c.Frames != 3 || c.FileSize != 3 || c.Session != session.ID {
		t.Errorf("Unexpected capture record %+v", c)
	}
}

func TestRecorder_StartFailures(t *testing.T) {
	tests := []struct {
		name   string
		dir    string
		format string
		fps    int
		openEr error
		want   error
	}{
		{"unsupported format", "dir", "mkv", 30, nil, ErrUnsupportedFormat},
		{"no directory", "", "mp4", 30, nil, ErrNoDirectory},
		{"open failure", "dir", "avi", 30, errors.New("no codec"), nil},
		{"invalid fps", "dir", "mp4", 0, nil, nil},
	}

	for _, tt := range tests {
		opener := &fakeOpener{err: tt.openEr}
		r, captures := newTestRecorder(t, opener)

		var states []bool
		r.OnStateChange(func(recording bool) { states = append(states, recording) })

		dir := tt.dir
		if dir != "" {
			dir = filepath.Join(t.TempDir(), dir)
		}
		_, err := r.Start(dir, tt.format, tt.fps)
		if err == nil {
			t.Errorf("%s: expected an error", tt.name)
			continue
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s: error %v, expected %v", tt.name, err, tt.want)
		}
		if r.Recording() {
			t.Errorf("%s: recorder should not be active", tt.name)
		}
		if len(states) != 1 || states[0] {
			t.Errorf("%s: expected a single false state event, got %v", tt.name, states)
		}
		if n, _ := captures.GetTotalCount(&dto.CaptureFilters{}); n != 0 {
			t.Errorf("%s: failed start was indexed", tt.name)
		}
	}
}

func TestRecorder_WriteFailureKeepsRecording(t *testing.T) {
	opener := &fakeOpener{}
	r, _ := newTestRecorder(t, opener)

	if _, err := r.Start(t.TempDir(), "avi", 15); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	opener.writer.failing = true
	r.FrameCompleted(testFrame(1))

	if !r.Recording() {
		t.Error("Write failure must not stop the recording")
	}
	if s := r.Session(); s.Frames != 0 {
		t.Errorf("Failed write counted as a frame: %d", s.Frames)
	}
}

func TestRecorder_Toggle(t *testing.T) {
	opener := &fakeOpener{}
	r, _ := newTestRecorder(t, opener)
	dir := t.TempDir()

	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop while idle returned %v", err)
	}

	active, err := r.Toggle(dir, "mp4", 30)
	if err != nil || !active {
		t.Fatalf("First toggle = (%v, %v), expected active", active, err)
	}
	if _, err := r.Start(dir, "mp4", 30); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("Second start returned %v", err)
	}
	if !r.Recording() {
		t.Error("Rejected start must not stop the active recording")
	}

	active, err = r.Toggle(dir, "mp4", 30)
	if err != nil || active {
		t.Errorf("Second toggle = (%v, %v), expected stopped", active, err)
	}
}

func TestRecorder_RejectedStartKeepsViewerState(t *testing.T) {
	opener := &fakeOpener{}
	r, _ := newTestRecorder(t, opener)
	dir := t.TempDir()

	var states []bool
	r.OnStateChange(func(recording bool) { states = append(states, recording) })

	if _, err := r.Start(dir, "avi", 30); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := r.Start(dir, "avi", 30); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("Second start returned %v", err)
	}

	if len(states) != 1 || !states[0] {
		t.Errorf("Expected only the true event from the first start, got %v", states)
	}
}

func TestSnapshotter_Save(t *testing.T) {
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()
	captures := sqlite.NewCaptureRepository(db)

	var saved string
	save := func(path string, r *frame.Raster) error {
		saved = path
		return os.WriteFile(path, []byte("png"), 0644)
	}
	s := NewSnapshotter(save, captures, "bench", logger.Discard())
	s.now = fixedClock

	if _, err := s.Save("", frame.NewRaster(1, 1)); !errors.Is(err, ErrNoDirectory) {
		t.Errorf("Save without directory returned %v", err)
	}
	if _, err := s.Save(t.TempDir(), nil); err == nil {
		t.Error("Save without a frame should fail")
	}

	dir := t.TempDir()
	path, err := s.Save(dir, frame.NewRaster(1, 1))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if path != filepath.Join(dir, "snapshot_20260314_093005.png") || saved != path {
		t.Errorf("Unexpected snapshot path %s (saved %s)", path, saved)
	}

	c, _ := captures.GetByFilename("snapshot_20260314_093005.png")
	if c == nil || c.Kind != model.KindSnapshot || c.FileSize != 3 {
		t.Errorf("Unexpected capture record %+v", c)
	}
}

func TestSnapshotter_SaveError(t *testing.T) {
	s := NewSnapshotter(func(string, *frame.Raster) error { return errors.New("encode") }, nil, "bench", logger.Discard())
	if _, err := s.Save(t.TempDir(), frame.NewRaster(1, 1)); err == nil {
		t.Error("Expected save error to be returned")
	}
}
