package storage

import (
	"context"
	"os"
	"path/filepath"
	"sensorlink/internal/config"
	"sensorlink/internal/dto"
	"sensorlink/internal/logger"
	"sensorlink/internal/model"
	"sensorlink/internal/repository/sqlite"
	"strings"
	"testing"
	"time"
)

func newTestBuffer(t *testing.T, limit int) (*BufferService, *sqlite.CaptureRepository, *sqlite.DetectionRepository, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		CaptureDirectory:       filepath.Join(dir, "captures"),
		DetectionBufferLimit:   limit,
		DetectionFlushInterval: time.Hour,
	}
	captures := sqlite.NewCaptureRepository(db)
	detections := sqlite.NewDetectionRepository(db)
	return NewBufferService(cfg, logger.Discard(), captures, detections), captures, detections, cfg.CaptureDirectory
}

func TestBufferService_LimitPerSensor(t *testing.T) {
	s, _, _, _ := newTestBuffer(t, 2)

	for i := 0; i < 3; i++ {
		s.AddCapture([]byte{1}, "a", nil)
	}
	if !s.AddCapture([]byte{1}, "b", nil) {
		t.Error("Other sensors should have their own limit")
	}
	if s.Pending() != 3 {
		t.Errorf("Expected 3 pending captures, got %d", s.Pending())
	}

	s.FlushCaptures()
	if !s.AddCapture([]byte{1}, "a", nil) {
		t.Error("Flush should reset the per-sensor counters")
	}
}

func TestBufferService_FlushWritesFilesAndRows(t *testing.T) {
	s, captures, detections, dir := newTestBuffer(t, 10)

	s.AddCapture([]byte("jpeg-data"), "front", []dto.DetectionResult{
		{Label: "object", Confidence: 0.91, X: 10, Y: 20, Width: 30, Height: 40},
		{Label: "object", Confidence: 0.88},
	})

	if n := s.FlushCaptures(); n != 1 {
		t.Fatalf("Expected 1 capture flushed, got %d", n)
	}
	if s.Pending() != 0 {
		t.Error("Buffer not cleared after flush")
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Expected one file in %s: %v", dir, err)
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "detection_") || !strings.HasSuffix(name, "_front_object.jpg") {
		t.Errorf("Unexpected file name %s", name)
	}

	c, _ := captures.GetByFilename(name)
	if c == nil || c.Kind != model.KindDetection || c.FileSize != int64(len("jpeg-data")) {
		t.Fatalf("Unexpected capture record %+v", c)
	}
	dets, _ := detections.GetByCaptureID(c.ID)
	if len(dets) != 2 {
		t.Errorf("Expected 2 detections stored, got %d", len(dets))
	}

	if n := s.FlushCaptures(); n != 0 {
		t.Errorf("Empty flush wrote %d captures", n)
	}
}

func TestBufferService_RunFlushesOnShutdown(t *testing.T) {
	s, _, _, dir := newTestBuffer(t, 10)
	s.AddCapture([]byte{1, 2, 3}, "front", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if entries, _ := os.ReadDir(dir); len(entries) != 1 {
		t.Errorf("Expected the buffer to be flushed on shutdown, found %d files", len(entries))
	}
}

func TestCaptureFilename(t *testing.T) {
	c := dto.BufferedCapture{
		Timestamp: time.Date(2026, 3, 14, 9, 30, 5, 123e6, time.UTC),
		Sensor:    "front",
		Detections: []dto.DetectionResult{
			{Label: "person"}, {Label: "object"}, {Label: "person"},
		},
	}
	if got := captureFilename(c); got != "detection_20260314_093005.123_front_object-person.jpg" {
		t.Errorf("Unexpected filename %s", got)
	}

	c.Detections = nil
	if got := captureFilename(c); got != "detection_20260314_093005.123_front.jpg" {
		t.Errorf("Unexpected filename %s", got)
	}
}

func TestParseCaptureFilename(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 250*int(time.Millisecond), time.Local)
	name := captureFilename(dto.BufferedCapture{
		Timestamp: ts,
		Sensor:    "porch",
		Detections: []dto.DetectionResult{
			{Label: "object"}, {Label: "class2"}, {Label: "object"},
		},
	})

	c, labels, err := ParseCaptureFilename(name)
	if err != nil {
		t.Fatalf("ParseCaptureFilename(%q) failed: %v", name, err)
	}
	if c.Kind != model.KindDetection || c.Sensor != "porch" {
		t.Errorf("Unexpected capture: %+v", c)
	}
	if !c.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, expected %v", c.Timestamp, ts)
	}
	if len(labels) != 2 || labels[0] != "class2" || labels[1] != "object" {
		t.Errorf("Labels = %v, expected [class2 object]", labels)
	}
}

func TestParseCaptureFilename_Kinds(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		wantErr bool
	}{
		{"snapshot_20260314_093000.png", model.KindSnapshot, false},
		{"recording_20260314_093000.mp4", model.KindRecording, false},
		{"recording_20260314_093000.AVI", model.KindRecording, false},
		{"detection_20260314_093000.000_cam.jpg", model.KindDetection, false},
		{"detection_20260314_093000.000.jpg", "", true},
		{"snapshot_20260314_093000.jpg", "", true},
		{"snapshot_notadate_x.png", "", true},
		{"holiday.png", "", true},
	}

	for _, tt := range tests {
		c, _, err := ParseCaptureFilename(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCaptureFilename(%q) expected error, got %+v", tt.name, c)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCaptureFilename(%q) failed: %v", tt.name, err)
			continue
		}
		if c.Kind != tt.kind {
			t.Errorf("ParseCaptureFilename(%q) kind = %q, expected %q", tt.name, c.Kind, tt.kind)
		}
	}
}
