package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"sensorlink/internal/frame"
	"sensorlink/internal/logger"
	"sensorlink/internal/model"
	"sensorlink/internal/repository"
	"time"
)

// Snapshotter saves single frames as PNG files.
type Snapshotter struct {
	save     SaveFunc
	captures repository.CaptureRepository
	sensor   string
	logger   *logger.Logger
	now      func() time.Time
}

// NewSnapshotter creates a snapshotter. captures may be nil.
func NewSnapshotter(save SaveFunc, captures repository.CaptureRepository, sensor string, logger *logger.Logger) *Snapshotter {
	return &Snapshotter{
		save:     save,
		captures: captures,
		sensor:   sensor,
		logger:   logger,
		now:      time.Now,
	}
}

// Save writes r to dir/snapshot_<timestamp>.png and returns the path.
func (s *Snapshotter) Save(dir string, r *frame.Raster) (string, error) {
	if dir == "" {
		s.logger.Warning("Save directory is not set")
		return "", ErrNoDirectory
	}
	if r.Empty() {
		return "", fmt.Errorf("no frame to save")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	takenAt := s.now()
	path := filepath.Join(dir, FileName("snapshot", takenAt, "png"))
	if err := s.save(path, r); err != nil {
		s.logger.Error("Failed to save snapshot %s: %v", path, err)
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}
	s.logger.Info("Snapshot saved: %s", path)

	if s.captures != nil {
		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		if _, err := s.captures.Insert(&model.Capture{
			Filename:  filepath.Base(path),
			Kind:      model.KindSnapshot,
			Sensor:    s.sensor,
			Timestamp: takenAt,
			FilePath:  path,
			FileSize:  size,
			Frames:    1,
		}); err != nil {
			s.logger.Warning("Failed to index snapshot %s: %v", path, err)
		}
	}

	return path, nil
}
