// Package video adapts frame rasters to OpenCV for encoding, recording and
// annotation.
package video

import (
	"fmt"
	"sensorlink/internal/frame"

	"gocv.io/x/gocv"
)

// RasterToMat copies an RGB raster into a new BGR Mat. The caller closes it.
func RasterToMat(r *frame.Raster) (gocv.Mat, error) {
	if r.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty raster")
	}

	bgr := make([]byte, len(r.Pix))
	for i := 0; i+2 < len(r.Pix); i += frame.BytesPerPixel {
		bgr[i] = r.Pix[i+2]
		bgr[i+1] = r.Pix[i+1]
		bgr[i+2] = r.Pix[i]
	}

	mat, err := gocv.NewMatFromBytes(r.Height, r.Width, gocv.MatTypeCV8UC3, bgr)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create mat: %w", err)
	}
	return mat, nil
}

// EncodeJPEG encodes mat as JPEG and returns a copy of the bytes.
func EncodeJPEG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
