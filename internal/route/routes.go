package route

import (
	"net/http"
	"os"
	"path/filepath"
	"sensorlink/internal/config"
	"sensorlink/internal/handler"
	"sensorlink/internal/logger"
	"sensorlink/internal/middleware"
	"sensorlink/internal/repository"
	"sensorlink/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StaticDirectory holds the viewer pages.
const StaticDirectory = "static"

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join(StaticDirectory, filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints and
// metrics, and wraps the mux with the authentication middleware.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger,
	captureRepo repository.CaptureRepository) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(StaticDirectory))))

	// Live view and receiver state
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(manager, logger))
	mux.HandleFunc("/api/status", handler.StatusHandler(manager, logger))
	mux.HandleFunc("/api/controls", handler.ControlsHandler(manager, logger))
	mux.HandleFunc("/api/frame", handler.FrameHandler(manager, logger))
	mux.HandleFunc("/api/snapshot", handler.SnapshotHandler(manager, logger))
	mux.HandleFunc("/api/recording", handler.RecordingHandler(manager, logger))

	// Captures
	if captureRepo != nil {
		mux.HandleFunc("/api/captures", handler.GetCapturesHandler(manager, logger, captureRepo))
	}
	mux.HandleFunc("/api/captures/view", handler.ViewCaptureHandler(manager, captureRepo))
	mux.HandleFunc("/api/captures/delete", handler.DeleteCaptureHandler(manager, logger, captureRepo))
	mux.HandleFunc("/api/captures/clear", handler.ClearCapturesHandler(manager, logger, captureRepo))

	// Log endpoints
	for _, level := range []string{"info", "warning", "error"} {
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(logger, level))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(logger, level))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	mux.Handle("/metrics", promhttp.Handler())

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.AuthMiddleware(mux)
}
