package video

import (
	"fmt"
	"sensorlink/internal/frame"
	"sensorlink/internal/service/recording"

	"gocv.io/x/gocv"
)

// fileWriter is a recording.FrameWriter backed by an OpenCV VideoWriter.
type fileWriter struct {
	writer *gocv.VideoWriter
}

// OpenWriter opens a video file for recording. It matches recording.OpenFunc.
func OpenWriter(path, codec string, fps float64, width, height int) (recording.FrameWriter, error) {
	writer, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open video writer: %w", err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("video writer not opened: %s", path)
	}
	return &fileWriter{writer: writer}, nil
}

func (w *fileWriter) WriteFrame(r *frame.Raster) error {
	mat, err := RasterToMat(r)
	if err != nil {
		return err
	}
	defer mat.Close()

	if err := w.writer.Write(mat); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

func (w *fileWriter) Close() error {
	return w.writer.Close()
}

// SavePNG writes a raster as an image file. It matches recording.SaveFunc.
func SavePNG(path string, r *frame.Raster) error {
	mat, err := RasterToMat(r)
	if err != nil {
		return err
	}
	defer mat.Close()

	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("failed to write image: %s", path)
	}
	return nil
}
