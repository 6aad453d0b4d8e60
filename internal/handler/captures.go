package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"sensorlink/internal/dto"
	"sensorlink/internal/logger"
	"sensorlink/internal/repository"
	"sensorlink/internal/service"
	"strconv"
	"time"
)

// GetCapturesHandler returns a filtered, paginated list of captures from the database.
func GetCapturesHandler(manager *service.Manager, logger *logger.Logger,
	captureRepo repository.CaptureRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.CaptureFilters{
			Kind:       q.Get("kind"),
			Sensor:     q.Get("sensor"),
			Label:      q.Get("label"),
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
			TimeAfter:  parseTimeOfDay(q.Get("timeAfter")),
			TimeBefore: parseTimeOfDay(q.Get("timeBefore")),
			Limit:      limit,
			Offset:     (page - 1) * limit,
		}

		captures, err := captureRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying captures from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := captureRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting captures: %v", err)
			totalCount = len(captures)
		}

		var totalSize int64
		if stats, err := captureRepo.GetStats(); err != nil {
			logger.Error("Error getting capture stats: %v", err)
		} else {
			totalSize = stats.TotalSizeBytes
		}

		infos := make([]dto.CaptureInfo, 0, len(captures))
		for _, c := range captures {
			labels, err := captureRepo.Labels(c.ID)
			if err != nil {
				logger.Error("Error getting labels for capture %d: %v", c.ID, err)
			}
			if labels == nil {
				labels = []string{}
			}

			infos = append(infos, dto.CaptureInfo{
				Name:      c.Filename,
				Kind:      c.Kind,
				Date:      c.Timestamp,
				TimeOfDay: c.Timestamp,
				Sensor:    c.Sensor,
				Size:      c.FileSize,
				Labels:    labels,
			})
		}

		data := dto.CapturesData{
			Captures:    infos,
			CaptureDir:  manager.CaptureDirectory(),
			Size:        totalSize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}
		if data.Labels, err = captureRepo.AllLabels(); err != nil {
			logger.Error("Error getting capture labels: %v", err)
			data.Labels = []string{}
		}

		writeJSON(w, logger, http.StatusOK, data)
	}
}

// capturePath resolves a capture name to its file. Indexed captures use the
// stored path; anything else is looked up by base name in the capture directory.
func capturePath(manager *service.Manager, captureRepo repository.CaptureRepository, name string) string {
	name = filepath.Base(name)
	if captureRepo != nil {
		if c, err := captureRepo.GetByFilename(name); err == nil && c != nil && c.FilePath != "" {
			return c.FilePath
		}
	}
	return filepath.Join(manager.CaptureDirectory(), name)
}

// ViewCaptureHandler serves a single capture file specified via the "name" query parameter.
func ViewCaptureHandler(manager *service.Manager, captureRepo repository.CaptureRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "Name parameter is required", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, capturePath(manager, captureRepo, name))
	}
}

// DeleteCaptureHandler removes a capture from disk and database.
func DeleteCaptureHandler(manager *service.Manager, logger *logger.Logger,
	captureRepo repository.CaptureRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "Name required", http.StatusBadRequest)
			return
		}
		if s := manager.Recorder.Session(); s != nil && filepath.Base(s.Path) == filepath.Base(name) {
			http.Error(w, "Capture is being recorded", http.StatusConflict)
			return
		}

		filePath := capturePath(manager, captureRepo, name)
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to delete file %s: %v", filePath, err)
		}

		if captureRepo != nil {
			if err := captureRepo.DeleteByFilename(filepath.Base(name)); err != nil {
				logger.Error("Failed to delete from database: %v", err)
			}
		}

		logger.Info("Deleted capture: %s", name)
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "deleted", "name": name})
	}
}

// ClearCapturesHandler deletes every file in the capture directory and clears the database.
func ClearCapturesHandler(manager *service.Manager, logger *logger.Logger,
	captureRepo repository.CaptureRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if manager.Recorder.Recording() {
			http.Error(w, "Stop the recording first", http.StatusConflict)
			return
		}

		dir := manager.CaptureDirectory()
		files, err := os.ReadDir(dir)
		if err != nil && !os.IsNotExist(err) {
			logger.Error("Error reading capture directory: %v", err)
			http.Error(w, "Unable to read capture directory", http.StatusInternalServerError)
			return
		}

		for _, file := range files {
			if file.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(dir, file.Name())); err != nil {
				logger.Error("Error deleting file %s: %v", file.Name(), err)
			}
		}

		if captureRepo != nil {
			if err := captureRepo.DeleteAll(); err != nil {
				logger.Error("Error clearing database: %v", err)
			}
		}

		logger.Info("All captures cleared from directory: %s", dir)
		w.WriteHeader(http.StatusNoContent)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseTimeOfDay validates a "15:04" time of day and returns it in the form the
// database compares against, or "" when absent or invalid.
func parseTimeOfDay(v string) string {
	if v == "" {
		return ""
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return ""
	}
	return t.Format("15:04:05")
}
