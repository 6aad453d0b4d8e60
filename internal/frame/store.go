package frame

import "sync"

// Store holds the current frame raster. The assembler is its only writer; any
// goroutine may take copies.
type Store struct {
	mu     sync.RWMutex
	raster *Raster
}

// NewStore returns a store holding a black raster of the given size.
func NewStore(width, height int) *Store {
	return &Store{raster: NewRaster(width, height)}
}

// Bounds returns the raster size.
func (s *Store) Bounds() (width, height int) {
	return s.raster.Width, s.raster.Height
}

// Publish converts each non-nil line into its raster row. The exclusive lock is
// held for the whole pass, so a concurrent Snapshot sees either the previous or
// the new frame. Rows with a nil line keep their previous contents. It returns the
// number of rows written.
func (s *Store) Publish(lines [][]byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	for y := 0; y < len(lines) && y < s.raster.Height; y++ {
		if len(lines[y]) == 0 {
			continue
		}
		ConvertLine(s.raster.Row(y), lines[y])
		written++
	}
	return written
}

// Snapshot returns an independent copy of the current raster.
func (s *Store) Snapshot() *Raster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raster.Clone()
}
