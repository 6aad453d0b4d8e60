package inference

import (
	"sensorlink/internal/frame"
	"sync"
)

// SnapshotBuffer is the raster the detector reads from. It is fed by frame
// completions and by SetPixel, and stays nil until first written.
type SnapshotBuffer struct {
	mu            sync.Mutex
	width, height int
	raster        *frame.Raster
}

// NewSnapshotBuffer returns an empty buffer of the given size.
func NewSnapshotBuffer(width, height int) *SnapshotBuffer {
	return &SnapshotBuffer{width: width, height: height}
}

// SetPixel writes one pixel. Out of range coordinates are ignored.
func (b *SnapshotBuffer) SetPixel(x, y int, r, g, bl byte) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.raster == nil {
		b.raster = frame.NewRaster(b.width, b.height)
	}
	b.raster.Set(x, y, r, g, bl)
}

// Load replaces the buffer contents with a copy of raster. Rasters of a different
// size are copied over the overlapping region.
func (b *SnapshotBuffer) Load(raster *frame.Raster) {
	if raster.Empty() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if raster.Width == b.width && raster.Height == b.height {
		b.raster = raster.Clone()
		return
	}
	if b.raster == nil {
		b.raster = frame.NewRaster(b.width, b.height)
	}
	w := min(raster.Width, b.width)
	h := min(raster.Height, b.height)
	for y := 0; y < h; y++ {
		copy(b.raster.Row(y)[:w*frame.BytesPerPixel], raster.Row(y)[:w*frame.BytesPerPixel])
	}
}

// Copy returns an independent copy, or nil if nothing was ever written.
func (b *SnapshotBuffer) Copy() *frame.Raster {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.raster.Clone()
}
