package service

import (
	"context"
	"encoding/base64"
	"math"
	"sensorlink/internal/config"
	"sensorlink/internal/dto"
	"sensorlink/internal/frame"
	"sensorlink/internal/inference"
	"sensorlink/internal/logger"
	"sensorlink/internal/metrics"
	"sensorlink/internal/service/recording"
	"sensorlink/internal/service/storage"
	"sensorlink/internal/service/websocket"
	"sync/atomic"
	"time"
)

// PreviewFunc renders a raster as a JPEG for viewers.
type PreviewFunc func(r *frame.Raster, flipHorizontal, flipVertical bool) ([]byte, error)

// AnnotateFunc draws detections onto a raster and returns a JPEG.
type AnnotateFunc func(detections []inference.Detection, r *frame.Raster) ([]byte, error)

// Components are the services a Manager coordinates. Gate may be nil when
// detection is disabled.
type Components struct {
	Assembler   *frame.Assembler
	Store       *frame.Store
	Gate        *inference.Gate
	Recorder    *recording.Recorder
	Snapshotter *recording.Snapshotter
	Buffer      *storage.BufferService
	Hub         *websocket.HubService
	Controls    *Controls
	Preview     PreviewFunc
	Annotate    AnnotateFunc
}

// Manager connects frame completion to the viewers, the recorder, the inference
// gate and detection storage.
type Manager struct {
	Components

	sensor       string
	captureDir   string
	recordFormat string
	recordFPS    int
	fpsInterval  time.Duration
	logger       *logger.Logger

	mailbox chan *frame.Frame
	fps     atomic.Int64
}

// NewManager subscribes the components to the assembler and returns the manager.
func NewManager(c Components, config *config.Config, logger *logger.Logger) *Manager {
	interval := config.FPSInterval
	if interval <= 0 {
		interval = time.Second
	}

	m := &Manager{
		Components:   c,
		sensor:       config.SensorName,
		captureDir:   config.CaptureDirectory,
		recordFormat: config.RecordFormat,
		recordFPS:    config.RecordFPS,
		fpsInterval:  interval,
		logger:       logger,
		mailbox:      make(chan *frame.Frame, 1),
	}

	c.Assembler.Subscribe(c.Recorder)
	if c.Gate != nil {
		c.Assembler.Subscribe(c.Gate)
		c.Gate.OnResult(m.HandleDetections)
	}
	c.Assembler.Subscribe(m)
	c.Recorder.OnStateChange(m.recordingChanged)

	m.logger.Info("Manager started - sensor %s, detection enabled: %v", m.sensor, c.Gate != nil)
	return m
}

// FrameCompleted hands the frame to the preview loop. Only the latest frame is
// kept; a frame the preview loop has not picked up yet is replaced.
func (m *Manager) FrameCompleted(f *frame.Frame) {
	for {
		select {
		case m.mailbox <- f:
			return
		default:
		}
		select {
		case <-m.mailbox:
		default:
		}
	}
}

// RunPreview sends completed frames to viewers until ctx is done.
func (m *Manager) RunPreview(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-m.mailbox:
			m.SendToViewers(f)
		}
	}
}

// SendToViewers encodes the frame with the current flips and broadcasts it.
func (m *Manager) SendToViewers(f *frame.Frame) {
	if m.Hub.GetClientCount() == 0 {
		return
	}

	flipH, flipV := m.Controls.Flips()
	image, err := m.Preview(f.Raster, flipH, flipV)
	if err != nil {
		m.logger.Error("Failed to encode preview for frame %d: %v", f.Seq, err)
		return
	}

	m.Hub.BroadcastJSON(frameMessage{
		Type:  MessageFrame,
		Seq:   f.Seq,
		Image: base64.StdEncoding.EncodeToString(image),
	})
}

// RunStats reports the frame rate every interval until ctx is done.
func (m *Manager) RunStats(ctx context.Context) error {
	ticker := time.NewTicker(m.fpsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.ReportFPS()
		}
	}
}

// ReportFPS consumes the assembler's frame counter, publishes the rate and returns it.
func (m *Manager) ReportFPS() int {
	frames := m.Assembler.TakeFrameCount()
	rate := float64(frames) / m.fpsInterval.Seconds()
	fps := int(math.Round(rate))

	metrics.SetFrameRate(rate)
	m.fps.Store(int64(fps))

	if m.Hub.GetClientCount() > 0 {
		m.Hub.BroadcastJSON(statusMessage{Type: MessageStatus, Status: m.Status()})
	}
	return fps
}

// FPS returns the last reported frame rate.
func (m *Manager) FPS() int {
	return int(m.fps.Load())
}

// HandleDetections forwards a pass result to viewers and buffers annotated
// captures of non-empty results.
func (m *Manager) HandleDetections(r *inference.Result) {
	if m.Hub.GetClientCount() > 0 {
		msg := detectionsMessage{Type: MessageDetections, Seq: r.Seq, Boxes: make([]boxMessage, 0, len(r.Boxes))}
		for _, d := range r.Boxes {
			msg.Boxes = append(msg.Boxes, boxMessage{
				X:      d.Box.Min.X,
				Y:      d.Box.Min.Y,
				Width:  d.Box.Dx(),
				Height: d.Box.Dy(),
				Score:  d.Score,
				Label:  inference.ClassLabel(d.ClassID),
			})
		}
		if r.Err != nil {
			msg.Error = r.Err.Error()
		}
		m.Hub.BroadcastJSON(msg)
	}

	if r.Err != nil || len(r.Boxes) == 0 || m.Buffer == nil {
		return
	}

	m.logger.Info("Detected %d objects in pass %d", len(r.Boxes), r.Seq)

	image, err := m.Annotate(r.Boxes, r.Raster)
	if err != nil {
		m.logger.Error("Failed to draw rectangles: %v", err)
		return
	}

	detections := make([]dto.DetectionResult, 0, len(r.Boxes))
	for _, d := range r.Boxes {
		detections = append(detections, dto.DetectionResult{
			ClassID:    d.ClassID,
			Label:      inference.ClassLabel(d.ClassID),
			Confidence: float64(d.Score),
			X:          d.Box.Min.X,
			Y:          d.Box.Min.Y,
			Width:      d.Box.Dx(),
			Height:     d.Box.Dy(),
		})
	}
	m.Buffer.AddCapture(image, m.sensor, detections)
}

// TakeSnapshot saves the current frame. An empty dir uses the capture directory.
func (m *Manager) TakeSnapshot(dir string) (string, error) {
	if dir == "" {
		dir = m.captureDir
	}
	return m.Snapshotter.Save(dir, m.Store.Snapshot())
}

// ToggleRecording starts or stops recording; empty arguments use the configured
// defaults. It reports whether a recording is active afterwards.
func (m *Manager) ToggleRecording(dir, format string, fps int) (bool, error) {
	if dir == "" {
		dir = m.captureDir
	}
	if format == "" {
		format = m.recordFormat
	}
	if fps <= 0 {
		fps = m.recordFPS
	}
	return m.Recorder.Toggle(dir, format, fps)
}

func (m *Manager) recordingChanged(recording bool) {
	if m.Hub.GetClientCount() > 0 {
		m.Hub.BroadcastJSON(recordingMessage{Type: MessageRecording, Recording: recording})
	}
}

// CurrentFrame returns a copy of the published raster.
func (m *Manager) CurrentFrame() *frame.Raster {
	return m.Store.Snapshot()
}

// RenderFrame encodes the current frame as the viewers see it.
func (m *Manager) RenderFrame() ([]byte, error) {
	flipH, flipV := m.Controls.Flips()
	return m.Preview(m.Store.Snapshot(), flipH, flipV)
}

// Status reports the live receiver state.
func (m *Manager) Status() dto.Status {
	status := dto.Status{
		Sensor:          m.sensor,
		FPS:             m.FPS(),
		FramesCompleted: m.Assembler.Completed(),
		Recording:       m.Recorder.Recording(),
		Controls:        m.Controls.Settings(),
	}
	if m.Gate != nil {
		status.InferenceBusy = m.Gate.Busy()
	}
	return status
}

// CaptureDirectory returns the configured capture directory.
func (m *Manager) CaptureDirectory() string {
	return m.captureDir
}
