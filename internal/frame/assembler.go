package frame

import (
	"context"
	"sensorlink/internal/logger"
	"sensorlink/internal/metrics"
	"sensorlink/internal/protocol"
	"sync"
	"sync/atomic"
	"time"
)

// State of the assembler state machine.
type State int

const (
	// StateIdle means no frame is in progress.
	StateIdle State = iota
	// StateAccumulating means a start marker was seen and lines are being collected.
	StateAccumulating
)

func (s State) String() string {
	if s == StateAccumulating {
		return "accumulating"
	}
	return "idle"
}

// Stats describes how one completed frame was reconstructed.
type Stats struct {
	Received int // lines that arrived
	Overflow int // line packets dropped past the last slot
	RepairStats
	RowsWritten int
}

// Frame is a completed frame handed to listeners. Raster is a private copy that
// listeners must treat as read-only; it is shared between them.
type Frame struct {
	Seq         uint64
	CompletedAt time.Time
	Raster      *Raster
	Stats       Stats
}

// Listener is notified after every frame completion, on the assembler goroutine.
type Listener interface {
	FrameCompleted(f *Frame)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(f *Frame)

func (fn ListenerFunc) FrameCompleted(f *Frame) { fn(f) }

// Assembler rebuilds frames from classified datagrams. Its working state persists
// across calls, so Handle must only ever be called from one goroutine at a time;
// Run is the intended single consumer.
type Assembler struct {
	store  *Store
	logger *logger.Logger
	height int

	state       State
	currentLine int
	lines       [][]byte
	received    []bool
	overflow    int

	frameCount atomic.Int64  // completions since the last TakeFrameCount
	completed  atomic.Uint64 // completions since construction

	listenersMu sync.RWMutex
	listeners   []Listener
}

// NewAssembler returns an assembler writing into store. The number of line slots
// equals the store height.
func NewAssembler(store *Store, logger *logger.Logger) *Assembler {
	_, height := store.Bounds()
	return &Assembler{
		store:    store,
		logger:   logger,
		height:   height,
		lines:    make([][]byte, height),
		received: make([]bool, height),
	}
}

// Subscribe registers a listener for completed frames.
func (a *Assembler) Subscribe(l Listener) {
	a.listenersMu.Lock()
	defer a.listenersMu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Run feeds datagrams from in to Handle until in is closed or ctx is done.
func (a *Assembler) Run(ctx context.Context, in <-chan []byte) error {
	a.logger.Info("Frame assembler started (%d line slots)", a.height)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Frame assembler stopped")
			return nil
		case datagram, ok := <-in:
			if !ok {
				a.logger.Info("Datagram source closed, frame assembler stopped")
				return nil
			}
			a.Handle(datagram)
		}
	}
}

// Handle classifies one datagram and advances the state machine.
func (a *Assembler) Handle(datagram []byte) {
	kind, payload := protocol.Classify(datagram)
	metrics.RecordDatagram(kind.String())

	switch kind {
	case protocol.KindMalformed:
		a.logger.Warning("Incomplete packet received. Packet too small: %d", len(datagram))

	case protocol.KindEmpty:
		// Header-only datagram, nothing to place.

	case protocol.KindStart:
		a.reset()
		a.state = StateAccumulating

	case protocol.KindEnd:
		if a.state == StateAccumulating {
			a.complete()
		}
		a.state = StateIdle

	case protocol.KindLine:
		if a.state != StateAccumulating {
			return
		}
		if a.currentLine < 0 || a.currentLine >= a.height {
			a.overflow++
			a.logger.Warning("Invalid line number: %d (frame has %d lines)", a.currentLine, a.height)
			return
		}
		line := make([]byte, len(payload))
		copy(line, payload)
		a.lines[a.currentLine] = line
		a.received[a.currentLine] = true
		a.currentLine++
	}
}

// State returns the current state. Only meaningful on the Handle goroutine.
func (a *Assembler) State() State {
	return a.state
}

// CurrentLine returns the next slot to fill. Only meaningful on the Handle goroutine.
func (a *Assembler) CurrentLine() int {
	return a.currentLine
}

// TakeFrameCount returns the number of frames completed since the previous call
// and resets the counter.
func (a *Assembler) TakeFrameCount() int {
	return int(a.frameCount.Swap(0))
}

// Completed returns the total number of completed frames.
func (a *Assembler) Completed() uint64 {
	return a.completed.Load()
}

func (a *Assembler) reset() {
	for i := range a.lines {
		a.lines[i] = nil
		a.received[i] = false
	}
	a.currentLine = 0
	a.overflow = 0
}

func (a *Assembler) complete() {
	stats := Stats{Overflow: a.overflow}
	for _, ok := range a.received {
		if ok {
			stats.Received++
		}
	}

	stats.RepairStats = Repair(a.lines, a.received)
	stats.RowsWritten = a.store.Publish(a.lines)

	a.frameCount.Add(1)
	seq := a.completed.Add(1)

	metrics.RecordFrameCompleted()
	metrics.RecordLines(metrics.LineReceived, stats.Received)
	metrics.RecordLines(metrics.LineInterpolated, stats.Interpolated)
	metrics.RecordLines(metrics.LineCopied, stats.Copied)
	metrics.RecordLines(metrics.LineUnresolved, stats.Unresolved)
	metrics.RecordLines(metrics.LineOverflow, stats.Overflow)

	if stats.Unresolved > 0 {
		a.logger.Warning("Frame %d: %d lines could not be resolved, previous rows kept", seq, stats.Unresolved)
	}

	a.reset()

	a.listenersMu.RLock()
	listeners := a.listeners
	a.listenersMu.RUnlock()
	if len(listeners) == 0 {
		return
	}

	f := &Frame{
		Seq:         seq,
		CompletedAt: time.Now(),
		Raster:      a.store.Snapshot(),
		Stats:       stats,
	}
	for _, l := range listeners {
		l.FrameCompleted(f)
	}
}
