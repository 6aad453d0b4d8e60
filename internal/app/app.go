package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sensorlink/internal/config"
	"sensorlink/internal/frame"
	"sensorlink/internal/handler"
	"sensorlink/internal/inference"
	"sensorlink/internal/logger"
	"sensorlink/internal/metrics"
	"sensorlink/internal/repository"
	"sensorlink/internal/repository/sqlite"
	"sensorlink/internal/route"
	"sensorlink/internal/service"
	"sensorlink/internal/service/ai"
	"sensorlink/internal/service/recording"
	"sensorlink/internal/service/storage"
	"sensorlink/internal/service/video"
	"sensorlink/internal/service/websocket"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   *logger.Logger
	db       *sqlite.DB
	source   *handler.UDPSource
	detector *ai.DetectorService
	buffer   *storage.BufferService
	hub      *websocket.HubService
	manager  *service.Manager
	server   *http.Server
}

// NewApp wires every component from the configuration. The UDP socket and the
// database are opened here so that configuration errors surface before Run.
func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)
	metrics.RegisterMetrics()

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	var captureRepo repository.CaptureRepository = sqlite.NewCaptureRepository(db)
	var detectionRepo repository.DetectionRepository = sqlite.NewDetectionRepository(db)

	source, err := handler.NewUDPSource(cfg, log)
	if err != nil {
		db.Close()
		log.Close()
		return nil, err
	}

	store := frame.NewStore(cfg.FrameWidth, cfg.FrameHeight)
	assembler := frame.NewAssembler(store, log)
	hub := websocket.NewHubService(log)
	buffer := storage.NewBufferService(cfg, log, captureRepo, detectionRepo)

	var detector *ai.DetectorService
	var gate *inference.Gate
	if cfg.DetectionEnabled {
		detector = ai.NewDetectorService(cfg, log)
		if detector.Ready() {
			gate = inference.NewGate(detector, inference.NewSnapshotBuffer(cfg.FrameWidth, cfg.FrameHeight), inference.Options{
				InputSize:           cfg.DetectorInputSize,
				ConfidenceThreshold: float32(cfg.ConfidenceThreshold),
				NMSScoreThreshold:   float32(cfg.NMSScoreThreshold),
				NMSIoUThreshold:     float32(cfg.NMSIoUThreshold),
				BoxScale:            cfg.BoxScale,
			}, log)
		} else {
			log.Warning("Detection disabled: model %s could not be loaded", cfg.ModelPath)
		}
	}

	recorder := recording.NewRecorder(video.OpenWriter, captureRepo, recording.RecorderOptions{
		Width:  cfg.FrameWidth,
		Height: cfg.FrameHeight,
		Sensor: cfg.SensorName,
	}, log)

	components := service.Components{
		Assembler:   assembler,
		Store:       store,
		Gate:        gate,
		Recorder:    recorder,
		Snapshotter: recording.NewSnapshotter(video.SavePNG, captureRepo, cfg.SensorName, log),
		Buffer:      buffer,
		Hub:         hub,
		Controls:    service.NewControls(),
		Preview: func(r *frame.Raster, flipHorizontal, flipVertical bool) ([]byte, error) {
			return video.Preview(r, video.PreviewOptions{
				Scale:          cfg.BoxScale,
				FlipHorizontal: flipHorizontal,
				FlipVertical:   flipVertical,
			})
		},
	}
	if detector != nil {
		components.Annotate = func(detections []inference.Detection, r *frame.Raster) ([]byte, error) {
			return detector.DrawRectangle(detections, r, cfg.BoxScale)
		}
	} else {
		components.Buffer = nil
	}

	manager := service.NewManager(components, cfg, log)

	router := route.SetupRoutes(manager, cfg, log, captureRepo)

	return &App{
		config:   cfg,
		logger:   log,
		db:       db,
		source:   source,
		detector: detector,
		buffer:   buffer,
		hub:      hub,
		manager:  manager,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: router,
		},
	}, nil
}

// Run starts every background service and the HTTP server and blocks until ctx
// is done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	a.logger.Info("SensorLink server on http://localhost:%d", a.config.Port)
	a.logger.Info("Frame receiver on udp %s (%dx%d)", a.source.LocalAddr(), a.config.FrameWidth, a.config.FrameHeight)
	a.logger.Info("Captures: %s", a.config.CaptureDirectory)
	a.logger.Info("AI model: %s (detection %v)", a.config.ModelPath, a.manager.Gate != nil)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.hub.Run(ctx) })
	g.Go(func() error { return a.source.Run(ctx) })
	g.Go(func() error { return a.manager.Assembler.Run(ctx, a.source.Datagrams()) })
	g.Go(func() error { return a.manager.RunPreview(ctx) })
	g.Go(func() error { return a.manager.RunStats(ctx) })
	if a.manager.Gate != nil {
		g.Go(func() error { return a.manager.Gate.Run(ctx) })
	}
	if a.manager.Buffer != nil {
		g.Go(func() error { return a.buffer.Run(ctx) })
	}

	g.Go(func() error {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) close() {
	if a.manager.Recorder.Recording() {
		if _, err := a.manager.Recorder.Stop(); err != nil {
			a.logger.Error("Failed to stop recording: %v", err)
		}
	}
	if a.detector != nil {
		a.detector.Close()
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
	a.logger.Info("SensorLink server stopped")
	a.logger.Close()
}
