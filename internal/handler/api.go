package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sensorlink/internal/dto"
	"sensorlink/internal/logger"
	"sensorlink/internal/service"
	"sensorlink/internal/service/recording"
	"strconv"
	"time"
)

// recordingState is the /api/recording response.
type recordingState struct {
	Recording bool      `json:"recording"`
	Session   string    `json:"session,omitempty"`
	Path      string    `json:"path,omitempty"`
	StartedAt time.Time `json:"startedAt,omitempty"`
	Frames    int64     `json:"frames"`
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// StatusHandler reports the live receiver state.
func StatusHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, manager.Status())
	}
}

// ControlsHandler returns the display controls on GET and applies a partial
// update on PATCH or POST. Out-of-range values are clamped.
func ControlsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, logger, http.StatusOK, manager.Controls.Settings())

		case http.MethodPatch, http.MethodPost:
			var update dto.ControlsUpdate
			if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
				http.Error(w, "Invalid controls payload", http.StatusBadRequest)
				return
			}
			settings := manager.Controls.Apply(update)
			logger.Info("Controls updated: %+v", settings)
			writeJSON(w, logger, http.StatusOK, settings)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// SnapshotHandler saves the current frame as PNG. The optional "dir" parameter
// overrides the capture directory.
func SnapshotHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		path, err := manager.TakeSnapshot(r.FormValue("dir"))
		if err != nil {
			logger.Error("Snapshot failed: %v", err)
			status := http.StatusInternalServerError
			if errors.Is(err, recording.ErrNoDirectory) {
				status = http.StatusBadRequest
			}
			http.Error(w, err.Error(), status)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]string{"path": path})
	}
}

// RecordingHandler reports the recording state on GET and toggles it on POST.
// POST accepts optional "dir", "format" (mp4, avi) and "fps" parameters.
func RecordingHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, logger, http.StatusOK, currentRecording(manager))

		case http.MethodPost:
			fps, _ := strconv.Atoi(r.FormValue("fps"))
			if _, err := manager.ToggleRecording(r.FormValue("dir"), r.FormValue("format"), fps); err != nil {
				logger.Error("Recording toggle failed: %v", err)
				status := http.StatusInternalServerError
				if errors.Is(err, recording.ErrUnsupportedFormat) || errors.Is(err, recording.ErrNoDirectory) {
					status = http.StatusBadRequest
				}
				http.Error(w, err.Error(), status)
				return
			}
			writeJSON(w, logger, http.StatusOK, currentRecording(manager))

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func currentRecording(manager *service.Manager) recordingState {
	s := manager.Recorder.Session()
	if s == nil {
		return recordingState{}
	}
	return recordingState{
		Recording: true,
		Session:   s.ID,
		Path:      s.Path,
		StartedAt: s.StartedAt,
		Frames:    s.Frames,
	}
}

// FrameHandler serves the current frame as a JPEG, flipped like the live view.
func FrameHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image, err := manager.RenderFrame()
		if err != nil {
			logger.Error("Failed to render frame: %v", err)
			http.Error(w, "Unable to render frame", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(image)
	}
}
