// Command framesim sends synthetic frames to the receiver using the sensor's
// datagram framing. Lines can be dropped at random to exercise interpolation.
package main

import (
	"context"
	"flag"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"sensorlink/internal/protocol"
	"time"

	"github.com/rs/zerolog"
)

type options struct {
	addr       string
	width      int
	height     int
	fps        float64
	frames     int
	loss       float64
	markerSize int
	lineDelay  time.Duration
	seed       int64
}

func main() {
	var opts options
	flag.StringVar(&opts.addr, "addr", "127.0.0.1:8080", "receiver UDP address")
	flag.IntVar(&opts.width, "width", 400, "frame width in pixels")
	flag.IntVar(&opts.height, "height", 400, "frame height in lines")
	flag.Float64Var(&opts.fps, "fps", 10, "frames per second")
	flag.IntVar(&opts.frames, "frames", 0, "frames to send, 0 sends until interrupted")
	flag.Float64Var(&opts.loss, "loss", 0, "probability of dropping each line packet")
	flag.IntVar(&opts.markerSize, "marker", 16, "payload size of start and end markers")
	flag.DurationVar(&opts.lineDelay, "line-delay", 0, "pause between line packets")
	flag.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "random seed for line loss")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, err := net.Dial("udp", opts.addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", opts.addr).Msg("Failed to dial receiver")
	}
	defer conn.Close()

	log.Info().Str("addr", opts.addr).Int("width", opts.width).Int("height", opts.height).
		Float64("fps", opts.fps).Float64("loss", opts.loss).Msg("Sending frames")

	sent, dropped, err := run(ctx, conn, opts)
	if err != nil {
		log.Error().Err(err).Msg("Sending stopped")
	}
	log.Info().Int("frames", sent).Int("droppedLines", dropped).Msg("Done")
}

// run sends frames until ctx is done or opts.frames were sent.
func run(ctx context.Context, conn net.Conn, opts options) (frames, dropped int, err error) {
	rng := rand.New(rand.NewSource(opts.seed))
	interval := time.Second
	if opts.fps > 0 {
		interval = time.Duration(float64(time.Second) / opts.fps)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint32
	send := func(datagram []byte) error {
		seq++
		_, err := conn.Write(datagram)
		return err
	}

	line := make([]byte, opts.width*protocol.BytesPerPixel)
	for opts.frames == 0 || frames < opts.frames {
		if err := send(protocol.StartMarker(seq, opts.markerSize)); err != nil {
			return frames, dropped, err
		}
		for y := 0; y < opts.height; y++ {
			fillLine(line, frames, y, opts.width, opts.height)
			if opts.loss > 0 && rng.Float64() < opts.loss {
				seq++
				dropped++
				continue
			}
			if err := send(protocol.LinePacket(seq, line)); err != nil {
				return frames, dropped, err
			}
			if opts.lineDelay > 0 {
				time.Sleep(opts.lineDelay)
			}
		}
		if err := send(protocol.EndMarker(seq, opts.markerSize)); err != nil {
			return frames, dropped, err
		}
		frames++

		select {
		case <-ctx.Done():
			return frames, dropped, nil
		case <-ticker.C:
		}
	}
	return frames, dropped, nil
}

// fillLine draws row y of a diagonal gradient that scrolls one pixel per frame.
func fillLine(line []byte, frame, y, width, height int) {
	for x := 0; x < width; x++ {
		r := byte((x + frame) * 255 / max(width, 1))
		g := byte(y * 255 / max(height, 1))
		b := byte(((x + y + frame) % 64) * 4)
		protocol.PutPixel565(line[x*protocol.BytesPerPixel:], r, g, b)
	}
}
