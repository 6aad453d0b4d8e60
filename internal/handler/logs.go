package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"sensorlink/internal/logger"
)

// logFiles maps the /logs/{level} path segment to the file written for that level.
var logFiles = map[string]string{
	"info":    logger.InfoFile,
	"warning": logger.WarningFile,
	"error":   logger.ErrorFile,
}

// ShowLogsHandler serves the log file of one level as text/plain.
func ShowLogsHandler(logger *logger.Logger, level string) http.HandlerFunc {
	filename := logFiles[level]
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, logger.LogDirectory(), filename)
	}
}

// ClearLogsHandler truncates the log file of one level.
func ClearLogsHandler(logger *logger.Logger, level string) http.HandlerFunc {
	filename := logFiles[level]
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		logger.CleanLogs(filename)
		w.WriteHeader(http.StatusNoContent)
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	if logDir == "" || filename == "" {
		http.NotFound(w, r)
		return
	}
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}
