package handler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sensorlink/internal/config"
	"sensorlink/internal/logger"
	"sensorlink/internal/metrics"
	"sensorlink/internal/protocol"
	"strconv"
)

// minReadBuffer covers marker datagrams regardless of frame width.
const minReadBuffer = 2048

// readBufferSize fits the largest line datagram for width plus one byte, so a
// read that fills the buffer means the datagram was cut off.
func readBufferSize(width int) int {
	return max(minReadBuffer, protocol.HeaderSize+width*protocol.BytesPerPixel) + 1
}

// UDPSource reads datagrams from the sensor socket and hands a private copy of
// each one to the assembler over a buffered channel. The socket is never read
// from more than one goroutine, so arrival order is preserved.
type UDPSource struct {
	address    string
	readBuffer int
	bufferSize int
	out        chan []byte
	logger     *logger.Logger

	conn *net.UDPConn
}

// NewUDPSource binds the configured address. The returned source is ready to Run.
func NewUDPSource(config *config.Config, logger *logger.Logger) (*UDPSource, error) {
	queue := config.DatagramQueue
	if queue <= 0 {
		queue = 1
	}

	s := &UDPSource{
		address:    net.JoinHostPort(config.UDPAddress, strconv.Itoa(config.UDPPort)),
		readBuffer: config.UDPReadBuffer,
		bufferSize: readBufferSize(config.FrameWidth),
		out:        make(chan []byte, queue),
		logger:     logger,
	}

	addr, err := net.ResolveUDPAddr("udp", s.address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address %s: %w", s.address, err)
	}

	s.conn, err = net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP %s: %w", s.address, err)
	}

	if s.readBuffer > 0 {
		if err := s.conn.SetReadBuffer(s.readBuffer); err != nil {
			logger.Warning("Failed to set UDP read buffer to %d: %v", s.readBuffer, err)
		}
	}
	return s, nil
}

// Datagrams is the channel the assembler consumes. It is closed when Run returns.
func (s *UDPSource) Datagrams() <-chan []byte {
	return s.out
}

// LocalAddr returns the bound socket address.
func (s *UDPSource) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Run reads the socket until ctx is done. A full queue drops the datagram
// instead of blocking the reader.
func (s *UDPSource) Run(ctx context.Context) error {
	defer close(s.out)

	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	s.logger.Info("UDP frame receiver started on %s", s.conn.LocalAddr())
	buffer := make([]byte, s.bufferSize)

	for {
		n, _, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Info("UDP frame receiver stopped")
				return nil
			}
			s.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		if n == len(buffer) {
			metrics.RecordTruncated()
			s.logger.Warning("Datagram exceeds %d bytes and was truncated", n-1)
			n--
		}

		datagram := make([]byte, n)
		copy(datagram, buffer[:n])

		select {
		case s.out <- datagram:
		default:
			metrics.RecordQueueDrop()
		}
	}
}
