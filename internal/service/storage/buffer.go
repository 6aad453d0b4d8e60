package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sensorlink/internal/config"
	"sensorlink/internal/dto"
	"sensorlink/internal/logger"
	"sensorlink/internal/model"
	"sensorlink/internal/repository"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultBufferLimit limits how many captures per sensor are buffered before flushing.
	DefaultBufferLimit = 10
	// DefaultFlushInterval defines how often buffered captures are flushed to disk.
	DefaultFlushInterval = 30 * time.Second

	timestampLayout = "20060102_150405.000"
)

// BufferService buffers detection captures in memory and periodically flushes
// them to disk and the database.
type BufferService struct {
	captureDir    string
	limit         int
	interval      time.Duration
	captures      []dto.BufferedCapture
	bufferCount   map[string]int
	mu            sync.Mutex
	logger        *logger.Logger
	captureRepo   repository.CaptureRepository
	detectionRepo repository.DetectionRepository
}

// NewBufferService creates a new BufferService. Either repository may be nil.
func NewBufferService(config *config.Config, logger *logger.Logger, captureRepo repository.CaptureRepository, detectionRepo repository.DetectionRepository) *BufferService {
	limit := config.DetectionBufferLimit
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	interval := config.DetectionFlushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}

	return &BufferService{
		captureDir:    config.CaptureDirectory,
		limit:         limit,
		interval:      interval,
		captures:      make([]dto.BufferedCapture, 0),
		bufferCount:   make(map[string]int),
		logger:        logger,
		captureRepo:   captureRepo,
		detectionRepo: detectionRepo,
	}
}

// Run flushes the buffer on every tick until ctx is done, then flushes once more.
func (s *BufferService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushCaptures()
			return nil
		case <-ticker.C:
			s.FlushCaptures()
		}
	}
}

// AddCapture appends an annotated frame to the buffer. Captures beyond the
// per-sensor limit are dropped until the next flush. It reports whether the
// capture was buffered.
func (s *BufferService) AddCapture(data []byte, sensor string, detections []dto.DetectionResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bufferCount[sensor] >= s.limit {
		return false
	}

	s.captures = append(s.captures, dto.BufferedCapture{
		Timestamp:  time.Now(),
		Sensor:     sensor,
		Detections: detections,
		Data:       data,
	})
	s.bufferCount[sensor]++
	s.logger.Info("Buffer size for sensor %s: %d/%d", sensor, s.bufferCount[sensor], s.limit)
	return true
}

// Pending returns the number of buffered captures.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.captures)
}

// FlushCaptures writes buffered captures to disk and resets the buffer and
// per-sensor counters. It returns the number of files written.
func (s *BufferService) FlushCaptures() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.captures) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.captureDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	savedCount := 0
	for _, capture := range s.captures {
		filename := captureFilename(capture)
		fullpath := filepath.Join(s.captureDir, filename)

		if err := os.WriteFile(fullpath, capture.Data, 0644); err != nil {
			s.logger.Error("Error saving capture %s: %v", filename, err)
			continue
		}
		savedCount++

		if s.captureRepo == nil {
			continue
		}

		captureID, err := s.captureRepo.Insert(&model.Capture{
			Filename:  filename,
			Kind:      model.KindDetection,
			Sensor:    capture.Sensor,
			Timestamp: capture.Timestamp,
			FilePath:  fullpath,
			FileSize:  int64(len(capture.Data)),
			Frames:    1,
		})
		if err != nil {
			s.logger.Error("Error saving capture to database %s: %v", filename, err)
			continue
		}

		if s.detectionRepo != nil && len(capture.Detections) > 0 {
			dbDetections := make([]model.Detection, 0, len(capture.Detections))
			for _, det := range capture.Detections {
				dbDetections = append(dbDetections, model.Detection{
					CaptureID:  captureID,
					ClassID:    det.ClassID,
					Label:      det.Label,
					X:          det.X,
					Y:          det.Y,
					Width:      det.Width,
					Height:     det.Height,
					Confidence: det.Confidence,
				})
			}
			if err := s.detectionRepo.InsertBatch(dbDetections); err != nil {
				s.logger.Error("Error saving detections to database: %v", err)
			}
		}
	}

	s.logger.Info("Flushed %d captures to disk", savedCount)
	s.captures = s.captures[:0]
	s.bufferCount = make(map[string]int)
	return savedCount
}

// captureFilename builds detection_<timestamp>_<sensor>_<labels>.jpg with each
// label listed once.
func captureFilename(c dto.BufferedCapture) string {
	seen := make(map[string]bool)
	var labels []string
	for _, det := range c.Detections {
		if !seen[det.Label] {
			seen[det.Label] = true
			labels = append(labels, det.Label)
		}
	}
	sort.Strings(labels)

	name := fmt.Sprintf("detection_%s_%s", c.Timestamp.Format(timestampLayout), c.Sensor)
	if len(labels) > 0 {
		name += "_" + strings.Join(labels, "-")
	}
	return name + ".jpg"
}
