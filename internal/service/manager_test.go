package service

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"sensorlink/internal/config"
	"sensorlink/internal/frame"
	"sensorlink/internal/inference"
	"sensorlink/internal/logger"
	"sensorlink/internal/protocol"
	"sensorlink/internal/service/recording"
	"sensorlink/internal/service/storage"
	"sensorlink/internal/service/websocket"
	"testing"
	"time"
)

type nopWriter struct{ frames int }

func (w *nopWriter) WriteFrame(*frame.Raster) error { w.frames++; return nil }
func (w *nopWriter) Close() error                   { return nil }

type testManager struct {
	*Manager
	writer    *nopWriter
	annotated int
}

func newTestManager(t *testing.T) *testManager {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		SensorName:             "bench",
		CaptureDirectory:       filepath.Join(dir, "captures"),
		RecordFormat:           "avi",
		RecordFPS:              30,
		FPSInterval:            time.Second,
		DetectionBufferLimit:   10,
		DetectionFlushInterval: time.Hour,
	}
	log := logger.Discard()
	store := frame.NewStore(2, 2)

	tm := &testManager{writer: &nopWriter{}}
	open := func(path, codec string, fps float64, w, h int) (recording.FrameWriter, error) {
		return tm.writer, nil
	}
	save := func(path string, r *frame.Raster) error {
		return os.WriteFile(path, r.Pix, 0644)
	}

	tm.Manager = NewManager(Components{
		Assembler:   frame.NewAssembler(store, log),
		Store:       store,
		Recorder:    recording.NewRecorder(open, nil, recording.RecorderOptions{Width: 2, Height: 2}, log),
		Snapshotter: recording.NewSnapshotter(save, nil, "bench", log),
		Buffer:      storage.NewBufferService(cfg, log, nil, nil),
		Hub:         websocket.NewHubService(log),
		Controls:    NewControls(),
		Preview: func(r *frame.Raster, h, v bool) ([]byte, error) {
			return []byte{0xFF, 0xD8}, nil
		},
		Annotate: func(d []inference.Detection, r *frame.Raster) ([]byte, error) {
			tm.annotated++
			return []byte{0xFF, 0xD8}, nil
		},
	}, cfg, log)
	return tm
}

func sendFrame(a *frame.Assembler) {
	a.Handle(protocol.StartMarker(0, 4))
	a.Handle(protocol.LinePacket(1, []byte{0xFF, 0xFF, 0xFF, 0xFF}))
	a.Handle(protocol.LinePacket(2, []byte{0xFF, 0xFF, 0xFF, 0xFF}))
	a.Handle(protocol.EndMarker(3, 4))
}

func TestManager_MailboxKeepsLatestFrame(t *testing.T) {
	m := newTestManager(t)

	for i := 0; i < 3; i++ {
		sendFrame(m.Assembler)
	}

	select {
	case f := <-m.mailbox:
		if f.Seq != 3 {
			t.Errorf("Expected the latest frame (3), got %d", f.Seq)
		}
	default:
		t.Fatal("Expected a frame in the mailbox")
	}
	select {
	case f := <-m.mailbox:
		t.Errorf("Unexpected second frame %d", f.Seq)
	default:
	}
}

func TestManager_ReportFPS(t *testing.T) {
	m := newTestManager(t)

	for i := 0; i < 5; i++ {
		sendFrame(m.Assembler)
	}
	if fps := m.ReportFPS(); fps != 5 {
		t.Errorf("Expected 5 fps, got %d", fps)
	}
	if m.FPS() != 5 {
		t.Errorf("FPS() = %d, expected 5", m.FPS())
	}
	if fps := m.ReportFPS(); fps != 0 {
		t.Errorf("Counter not reset, got %d fps", fps)
	}

	status := m.Status()
	if status.FramesCompleted != 5 || status.Sensor != "bench" || status.Recording {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestManager_RecordingFollowsFrames(t *testing.T) {
	m := newTestManager(t)

	active, err := m.ToggleRecording("", "", 0)
	if err != nil || !active {
		t.Fatalf("ToggleRecording = (%v, %v)", active, err)
	}
	sendFrame(m.Assembler)
	sendFrame(m.Assembler)

	if !m.Status().Recording {
		t.Error("Status should report recording")
	}
	if active, _ := m.ToggleRecording("", "", 0); active {
		t.Error("Second toggle should stop the recording")
	}
	sendFrame(m.Assembler)

	if m.writer.frames != 2 {
		t.Errorf("Expected 2 recorded frames, got %d", m.writer.frames)
	}
}

func TestManager_TakeSnapshotUsesCaptureDirectory(t *testing.T) {
	m := newTestManager(t)
	sendFrame(m.Assembler)

	path, err := m.TakeSnapshot("")
	if err != nil {
		t.Fatalf("TakeSnapshot failed: %v", err)
	}
	if filepath.Dir(path) != m.CaptureDirectory() {
		t.Errorf("Snapshot written to %s, expected %s", path, m.CaptureDirectory())
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) != 2*2*frame.BytesPerPixel || data[0] != 255 {
		t.Errorf("Unexpected snapshot contents %v (%v)", data, err)
	}
}

func TestManager_HandleDetections(t *testing.T) {
	m := newTestManager(t)
	raster := frame.NewRaster(2, 2)

	m.HandleDetections(&inference.Result{Seq: 1, Raster: raster})
	m.HandleDetections(&inference.Result{Seq: 2, Raster: raster, Err: errors.New("boom"),
		Boxes: []inference.Detection{{Box: image.Rect(0, 0, 1, 1)}}})
	if m.annotated != 0 || m.Buffer.Pending() != 0 {
		t.Fatal("Empty or failed results must not be stored")
	}

	m.HandleDetections(&inference.Result{Seq: 3, Raster: raster, Boxes: []inference.Detection{
		{Box: image.Rect(2, 4, 12, 24), Score: 0.9},
	}})
	if m.annotated != 1 || m.Buffer.Pending() != 1 {
		t.Errorf("Expected one annotated capture, got annotated=%d pending=%d", m.annotated, m.Buffer.Pending())
	}
}

func TestManager_RenderFrame(t *testing.T) {
	m := newTestManager(t)
	var gotH, gotV bool
	m.Preview = func(r *frame.Raster, h, v bool) ([]byte, error) {
		gotH, gotV = h, v
		return []byte{1}, nil
	}
	m.Controls.SetFlipHorizontal(true)

	if _, err := m.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	if !gotH || gotV {
		t.Errorf("Preview called with flips (%v, %v), expected (true, false)", gotH, gotV)
	}
	if r, _, _ := m.CurrentFrame().At(0, 0); r != 0 {
		t.Error("Flip must not touch the stored raster")
	}
}
