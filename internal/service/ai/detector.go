package ai

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"sensorlink/internal/config"
	"sensorlink/internal/frame"
	"sensorlink/internal/inference"
	"sensorlink/internal/logger"
	"sensorlink/internal/service/video"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNetworkNotReady is returned by Detect when the model could not be loaded.
var ErrNetworkNotReady = errors.New("detection network not initialized")

// yoloRows is the number of values per candidate in the single-class YOLOv8
// output: cx, cy, w, h, score.
const yoloRows = 5

// DetectorService runs a YOLOv8 ONNX model through the OpenCV DNN module.
type DetectorService struct {
	net       gocv.Net
	ready     bool
	mu        sync.Mutex
	modelPath string
	logger    *logger.Logger
}

// NewDetectorService creates a detector for the configured model. A missing or
// broken model is logged and leaves the service in a not-ready state.
func NewDetectorService(config *config.Config, logger *logger.Logger) *DetectorService {
	service := &DetectorService{
		modelPath: config.ModelPath,
		logger:    logger,
	}

	if err := service.initializeNet(); err != nil {
		service.logger.Warning("Could not initialize detection network: %v", err)
		return service
	}

	return service
}

// initializeNet loads the ONNX network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	net := gocv.ReadNetFromONNX(s.modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network")
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)

	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.ready = true
	s.logger.Info("Detection network initialized from %s", s.modelPath)
	return nil
}

// Ready reports whether the network was loaded.
func (s *DetectorService) Ready() bool {
	return s.ready
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil
	}
	s.ready = false
	return s.net.Close()
}

// Detect runs the network on a BGR input and returns candidates in input
// coordinates, clamped to the input bounds. No score filtering is applied.
func (s *DetectorService) Detect(ctx context.Context, in *inference.Input) ([]inference.Candidate, error) {
	if !s.ready {
		return nil, ErrNetworkNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.NewMatFromBytes(in.Height, in.Width, gocv.MatTypeCV8UC3, in.BGR)
	if err != nil {
		return nil, fmt.Errorf("failed to create input mat: %w", err)
	}
	defer mat.Close()

	// swapRB turns the BGR input into the RGB order the model was trained on.
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(in.Width, in.Height), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.mu.Lock()
	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	s.mu.Unlock()
	defer output.Close()

	// Output is (1, 5, N): reshape to 5 x N and transpose to N rows of cx, cy, w, h, score.
	reshaped := output.Reshape(1, yoloRows)
	defer reshaped.Close()
	rows := reshaped.T()
	defer rows.Close()

	if rows.Cols() < yoloRows {
		return nil, fmt.Errorf("unexpected output shape %v", output.Size())
	}

	candidates := make([]inference.Candidate, 0, 16)
	for i := 0; i < rows.Rows(); i++ {
		cx := rows.GetFloatAt(i, 0)
		cy := rows.GetFloatAt(i, 1)
		w := rows.GetFloatAt(i, 2)
		h := rows.GetFloatAt(i, 3)
		score := rows.GetFloatAt(i, 4)

		box := image.Rect(
			clamp(int(cx-w/2), in.Width),
			clamp(int(cy-h/2), in.Height),
			clamp(int(cx+w/2), in.Width),
			clamp(int(cy+h/2), in.Height),
		)
		candidates = append(candidates, inference.Candidate{Box: box, Score: score})
	}

	return candidates, nil
}

func clamp(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

// DrawRectangle draws detections on a copy of the raster and returns it encoded
// as JPEG.
func (s *DetectorService) DrawRectangle(detections []inference.Detection, r *frame.Raster, scale int) ([]byte, error) {
	red := color.RGBA{R: 255, G: 0, B: 0, A: 0}

	mat, err := video.RasterToMat(r)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if scale > 1 {
		scaled := gocv.NewMat()
		defer scaled.Close()
		gocv.Resize(mat, &scaled, image.Pt(r.Width*scale, r.Height*scale), 0, 0, gocv.InterpolationLinear)
		mat, scaled = scaled, mat
	}

	for _, detection := range detections {
		err = gocv.Rectangle(&mat, detection.Box, red, 2)
		if err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %v", err)
		}

		label := fmt.Sprintf("%s (%.2f)", inference.ClassLabel(detection.ClassID), detection.Score)
		pt := image.Pt(detection.Box.Min.X, detection.Box.Min.Y-5)
		err = gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.5, red, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to draw text: %v", err)
		}
	}

	buf, err := video.EncodeJPEG(mat)
	if err != nil {
		s.logger.Error("Failed to encode image: %v", err)
		return nil, err
	}
	return buf, nil
}
