package frame

import (
	"bytes"
	"sync"
	"testing"
)

func TestStore_InitialRasterIsBlack(t *testing.T) {
	store := NewStore(4, 3)
	w, h := store.Bounds()
	if w != 4 || h != 3 {
		t.Fatalf("Bounds = %dx%d, expected 4x3", w, h)
	}

	snap := store.Snapshot()
	if len(snap.Pix) != 4*3*BytesPerPixel {
		t.Fatalf("Unexpected raster size %d", len(snap.Pix))
	}
	if bytes.Count(snap.Pix, []byte{0}) != len(snap.Pix) {
		t.Error("Expected an all-black initial raster")
	}
}

func TestStore_PublishSkipsNilLines(t *testing.T) {
	store := NewStore(2, 3)
	white := solidLine(2, 0xFF, 0xFF)

	if n := store.Publish([][]byte{white, white, white}); n != 3 {
		t.Fatalf("Publish wrote %d rows, expected 3", n)
	}
	if n := store.Publish([][]byte{nil, solidLine(2, 0x00, 0x00), {}}); n != 1 {
		t.Fatalf("Publish wrote %d rows, expected 1", n)
	}

	snap := store.Snapshot()
	for y, want := range []byte{255, 0, 255} {
		if r, _, _ := snap.At(1, y); r != want {
			t.Errorf("Row %d red = %d, expected %d", y, r, want)
		}
	}
}

func TestStore_SnapshotIsIndependent(t *testing.T) {
	store := NewStore(1, 1)
	snap := store.Snapshot()
	snap.Set(0, 0, 9, 9, 9)

	if r, _, _ := store.Snapshot().At(0, 0); r != 0 {
		t.Error("Mutating a snapshot changed the store")
	}
}

// Snapshots taken while frames are published must be either fully the old or
// fully the new frame.
func TestStore_SnapshotNeverTorn(t *testing.T) {
	const width, height = 16, 64
	store := NewStore(width, height)

	black := make([][]byte, height)
	white := make([][]byte, height)
	for y := 0; y < height; y++ {
		black[y] = solidLine(width, 0x00, 0x00)
		white[y] = solidLine(width, 0xFF, 0xFF)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				store.Publish(white)
			} else {
				store.Publish(black)
			}
		}
	}()

	for i := 0; i < 500; i++ {
		snap := store.Snapshot()
		first := snap.Pix[0]
		if bytes.Count(snap.Pix, []byte{first}) != len(snap.Pix) {
			t.Fatalf("Snapshot %d mixes two frames", i)
		}
	}
	close(stop)
	wg.Wait()
}
