package video

import (
	"fmt"
	"image"
	"sensorlink/internal/frame"

	"gocv.io/x/gocv"
)

// PreviewOptions is the display transform applied to viewer frames.
type PreviewOptions struct {
	// Scale multiplies the raster size, 2 shows a 400x400 frame at 800x800.
	Scale          int
	FlipHorizontal bool
	FlipVertical   bool
}

// flipCode maps the flip toggles to the OpenCV flip code, ok is false when
// neither is set.
func flipCode(horizontal, vertical bool) (code int, ok bool) {
	switch {
	case horizontal && vertical:
		return -1, true
	case horizontal:
		return 1, true
	case vertical:
		return 0, true
	default:
		return 0, false
	}
}

// Preview renders a raster for viewers as JPEG. The raster itself is not
// modified.
func Preview(r *frame.Raster, opts PreviewOptions) ([]byte, error) {
	mat, err := RasterToMat(r)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if opts.Scale > 1 {
		scaled := gocv.NewMat()
		defer scaled.Close()
		gocv.Resize(mat, &scaled, image.Pt(r.Width*opts.Scale, r.Height*opts.Scale), 0, 0, gocv.InterpolationLinear)
		if scaled.Empty() {
			return nil, fmt.Errorf("failed to resize preview")
		}
		mat, scaled = scaled, mat
	}

	if code, ok := flipCode(opts.FlipHorizontal, opts.FlipVertical); ok {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(mat, &flipped, code)
		mat, flipped = flipped, mat
	}

	return EncodeJPEG(mat)
}
