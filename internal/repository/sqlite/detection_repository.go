package sqlite

import (
	"database/sql"
	"fmt"

	"sensorlink/internal/model"
)

const (
	insertDetection = `INSERT INTO detections (capture_id, class_id, label, x, y, width, height, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	detectionColumns = `id, capture_id, class_id, label, x, y, width, height, confidence`
)

// DetectionRepository stores the boxes found in detection captures. Label
// lookups used when listing captures live on CaptureRepository.
type DetectionRepository struct {
	db *DB
}

func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

func detectionArgs(d *model.Detection) []any {
	return []any{d.CaptureID, d.ClassID, d.Label, d.X, d.Y, d.Width, d.Height, d.Confidence}
}

// Insert stores one detection and returns its id.
func (r *DetectionRepository) Insert(det *model.Detection) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(insertDetection, detectionArgs(det)...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection for capture %d: %w", det.CaptureID, err)
	}
	return result.LastInsertId()
}

// InsertBatch stores every detection of a flush in one transaction; either all
// rows are written or none.
func (r *DetectionRepository) InsertBatch(detections []model.Detection) error {
	if len(detections) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertDetection)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range detections {
		if _, err := stmt.Exec(detectionArgs(&detections[i])...); err != nil {
			return fmt.Errorf("failed to insert detection %d of %d: %w", i+1, len(detections), err)
		}
	}
	return tx.Commit()
}

// GetByCaptureID returns the detections of a capture, highest confidence first.
func (r *DetectionRepository) GetByCaptureID(captureID int64) ([]model.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT `+detectionColumns+` FROM detections
		WHERE capture_id = ? ORDER BY confidence DESC, id`, captureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	return scanDetections(rows)
}

func scanDetections(rows *sql.Rows) ([]model.Detection, error) {
	var detections []model.Detection
	for rows.Next() {
		var d model.Detection
		if err := rows.Scan(&d.ID, &d.CaptureID, &d.ClassID, &d.Label, &d.X, &d.Y, &d.Width, &d.Height, &d.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, d)
	}
	return detections, rows.Err()
}

// DeleteByCaptureID removes the detections of a capture, leaving the capture.
func (r *DetectionRepository) DeleteByCaptureID(captureID int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE capture_id = ?`, captureID); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	return nil
}
