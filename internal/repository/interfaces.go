package repository

import (
	"sensorlink/internal/dto"
	"sensorlink/internal/model"
)

// CaptureRepository defines the interface for capture data operations.
type CaptureRepository interface {
	// Create operations
	Insert(c *model.Capture) (int64, error)

	// Update operations
	UpdateSize(id int64, fileSize, frames int64) error

	// Read operations
	GetByID(id int64) (*model.Capture, error)
	GetByFilename(filename string) (*model.Capture, error)
	GetAll(filter *dto.CaptureFilters) ([]model.Capture, error)
	GetTotalCount(filter *dto.CaptureFilters) (int, error)
	Exists(filename string) (bool, error)
	GetStats() (*model.CaptureStats, error)
	Labels(captureID int64) ([]string, error)
	AllLabels() ([]string, error)

	// Delete operations
	Delete(id int64) error
	DeleteByFilename(filename string) error
	DeleteAll() error
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	Insert(det *model.Detection) (int64, error)
	InsertBatch(detections []model.Detection) error

	// Read operations
	GetByCaptureID(captureID int64) ([]model.Detection, error)

	// Delete operations
	DeleteByCaptureID(captureID int64) error
}
