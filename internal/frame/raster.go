package frame

import (
	"image"
)

// BytesPerPixel is the size of one RGB888 pixel in a Raster.
const BytesPerPixel = 3

// Raster is a fixed-size RGB888 image, one byte per channel, rows packed
// back to back.
type Raster struct {
	Width  int
	Height int
	Pix    []byte
}

// NewRaster returns a black raster of the given size.
func NewRaster(width, height int) *Raster {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// Stride is the number of bytes in one row.
func (r *Raster) Stride() int {
	return r.Width * BytesPerPixel
}

// Empty reports whether the raster holds no pixels.
func (r *Raster) Empty() bool {
	return r == nil || r.Width == 0 || r.Height == 0 || len(r.Pix) == 0
}

// Row returns the bytes of row y. The slice aliases Pix.
func (r *Raster) Row(y int) []byte {
	start := y * r.Stride()
	return r.Pix[start : start+r.Stride()]
}

// At returns the color at (x, y).
func (r *Raster) At(x, y int) (red, green, blue byte) {
	i := y*r.Stride() + x*BytesPerPixel
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// Set writes the color at (x, y). Out of range coordinates are ignored.
func (r *Raster) Set(x, y int, red, green, blue byte) {
	if x < 0 || x >= r.Width || y < 0 || y >= r.Height {
		return
	}
	i := y*r.Stride() + x*BytesPerPixel
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = red, green, blue
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	if r == nil {
		return nil
	}
	pix := make([]byte, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Width: r.Width, Height: r.Height, Pix: pix}
}

// Image converts the raster into an opaque NRGBA image.
func (r *Raster) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		src := r.Row(y)
		dst := img.Pix[y*img.Stride : y*img.Stride+r.Width*4]
		for x := 0; x < r.Width; x++ {
			dst[x*4] = src[x*3]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xFF
		}
	}
	return img
}
