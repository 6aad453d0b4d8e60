package sqlite

import (
	"database/sql"
	"fmt"
	"sensorlink/internal/dto"
	"sensorlink/internal/model"
)

// CaptureRepository implements repository.CaptureRepository for SQLite.
type CaptureRepository struct {
	db *DB
}

// NewCaptureRepository creates a new SQLite capture repository.
func NewCaptureRepository(db *DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

const captureColumns = `c.id, c.filename, c.kind, c.sensor, c.session, c.timestamp, c.filepath, c.filesize, c.frames`

type scanner interface {
	Scan(dest ...any) error
}

func scanCapture(s scanner) (*model.Capture, error) {
	var c model.Capture
	if err := s.Scan(&c.ID, &c.Filename, &c.Kind, &c.Sensor, &c.Session, &c.Timestamp, &c.FilePath, &c.FileSize, &c.Frames); err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert adds a new capture record to the database.
func (r *CaptureRepository) Insert(c *model.Capture) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO captures (filename, kind, sensor, session, timestamp, filepath, filesize, frames)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.Filename, c.Kind, c.Sensor, c.Session, c.Timestamp, c.FilePath, c.FileSize, c.Frames)
	if err != nil {
		return 0, fmt.Errorf("failed to insert capture: %w", err)
	}

	return result.LastInsertId()
}

// UpdateSize records the final size of a capture, used when a recording stops.
func (r *CaptureRepository) UpdateSize(id int64, fileSize, frames int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`UPDATE captures SET filesize = ?, frames = ? WHERE id = ?`, fileSize, frames, id); err != nil {
		return fmt.Errorf("failed to update capture: %w", err)
	}
	return nil
}

// GetByID retrieves a capture by its ID. It returns nil when none exists.
func (r *CaptureRepository) GetByID(id int64) (*model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	c, err := scanCapture(r.db.Conn().QueryRow(`SELECT `+captureColumns+` FROM captures c WHERE c.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return c, nil
}

// GetByFilename retrieves a capture by its filename. It returns nil when none exists.
func (r *CaptureRepository) GetByFilename(filename string) (*model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	c, err := scanCapture(r.db.Conn().QueryRow(`SELECT `+captureColumns+` FROM captures c WHERE c.filename = ?`, filename))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return c, nil
}

// applyFilters appends the WHERE conditions for filter to query.
func applyFilters(query string, filter *dto.CaptureFilters) (string, []any) {
	args := []any{}
	if filter == nil {
		return query, args
	}

	if filter.Kind != "" {
		query += " AND c.kind = ?"
		args = append(args, filter.Kind)
	}

	if filter.Sensor != "" {
		query += " AND c.sensor = ?"
		args = append(args, filter.Sensor)
	}

	if filter.Label != "" {
		query += " AND d.label = ?"
		args = append(args, filter.Label)
	}

	if !filter.DateAfter.IsZero() {
		query += " AND DATE(c.timestamp) >= DATE(?)"
		args = append(args, filter.DateAfter)
	}

	if !filter.DateBefore.IsZero() {
		query += " AND DATE(c.timestamp) <= DATE(?)"
		args = append(args, filter.DateBefore)
	}

	if filter.TimeAfter != "" {
		query += " AND TIME(c.timestamp) >= TIME(?)"
		args = append(args, filter.TimeAfter)
	}

	if filter.TimeBefore != "" {
		query += " AND TIME(c.timestamp) <= TIME(?)"
		args = append(args, filter.TimeBefore)
	}

	return query, args
}

// GetAll retrieves captures based on filter criteria, newest first.
func (r *CaptureRepository) GetAll(filter *dto.CaptureFilters) ([]model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query, args := applyFilters(`
		SELECT DISTINCT `+captureColumns+`
		FROM captures c
		LEFT JOIN detections d ON c.id = d.capture_id
		WHERE 1=1
	`, filter)

	query += " ORDER BY c.timestamp DESC, c.id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	var captures []model.Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		captures = append(captures, *c)
	}

	return captures, rows.Err()
}

// GetTotalCount returns the total count of captures matching the filter.
func (r *CaptureRepository) GetTotalCount(filter *dto.CaptureFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query, args := applyFilters(`
		SELECT COUNT(DISTINCT c.id)
		FROM captures c
		LEFT JOIN detections d ON c.id = d.capture_id
		WHERE 1=1
	`, filter)

	var count int
	if err := r.db.Conn().QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count captures: %w", err)
	}

	return count, nil
}

// Exists checks if a capture with the given filename exists.
func (r *CaptureRepository) Exists(filename string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM captures WHERE filename = ?`, filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check capture existence: %w", err)
	}
	return count > 0, nil
}

// GetStats returns statistics about stored captures.
func (r *CaptureRepository) GetStats() (*model.CaptureStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.CaptureStats{
		PerKind:     make(map[string]int),
		LabelCounts: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*), COALESCE(SUM(filesize), 0) FROM captures`).Scan(&stats.TotalCaptures, &stats.TotalSizeBytes); err != nil {
		return nil, fmt.Errorf("failed to count captures: %w", err)
	}

	rows, err := r.db.Conn().Query(`SELECT kind, COUNT(*) FROM captures GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to query kinds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan kind: %w", err)
		}
		stats.PerKind[kind] = count
	}

	labelRows, err := r.db.Conn().Query(`
		SELECT label, COUNT(*) as cnt
		FROM detections
		GROUP BY label
		ORDER BY cnt DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer labelRows.Close()

	for labelRows.Next() {
		var label string
		var count int
		if err := labelRows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		stats.LabelCounts[label] = count
	}

	return stats, nil
}

// Delete removes a capture and its detections by ID.
func (r *CaptureRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE capture_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM captures WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete capture: %w", err)
	}
	return nil
}

// DeleteByFilename removes a capture and its detections by filename.
func (r *CaptureRepository) DeleteByFilename(filename string) error {
	r.db.Lock()
	defer r.db.Unlock()

	var captureID int64
	err := r.db.Conn().QueryRow(`SELECT id FROM captures WHERE filename = ?`, filename).Scan(&captureID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get capture id: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE capture_id = ?`, captureID); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM captures WHERE id = ?`, captureID); err != nil {
		return fmt.Errorf("failed to delete capture: %w", err)
	}
	return nil
}

// DeleteAll removes all captures and their detections.
func (r *CaptureRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM captures`); err != nil {
		return fmt.Errorf("failed to delete captures: %w", err)
	}

	return nil
}

// Labels returns the distinct labels detected in a capture, sorted.
func (r *CaptureRepository) Labels(captureID int64) ([]string, error) {
	return r.labels(`SELECT DISTINCT label FROM detections WHERE capture_id = ? ORDER BY label`, captureID)
}

// AllLabels returns every label that occurs in any capture, sorted. The
// captures list offers them as filter values.
func (r *CaptureRepository) AllLabels() ([]string, error) {
	return r.labels(`SELECT DISTINCT label FROM detections ORDER BY label`)
}

func (r *CaptureRepository) labels(query string, args ...any) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}
