// Package protocol implements the line-oriented datagram framing used by the sensor.
//
// Every datagram starts with a 4-byte header that the receiver treats as opaque.
// The payload that follows is either a run of StartSentinel (frame start), a run of
// EndSentinel (frame end), or one scan line of big-endian RGB565 samples. Lines carry
// no line number: their order of arrival between the two markers defines their index.
package protocol

import (
	"encoding/binary"
)

const (
	// HeaderSize is the number of leading bytes ignored by the receiver.
	HeaderSize = 4
	// StartSentinel fills the payload of a frame start marker.
	StartSentinel byte = 0xAA
	// EndSentinel fills the payload of a frame end marker.
	EndSentinel byte = 0xBB
	// BytesPerPixel is the size of one packed RGB565 sample.
	BytesPerPixel = 2
)

// Kind classifies a datagram.
type Kind int

const (
	// KindMalformed is a datagram shorter than HeaderSize.
	KindMalformed Kind = iota
	// KindEmpty is a header-only datagram.
	KindEmpty
	// KindStart is a frame start marker.
	KindStart
	// KindEnd is a frame end marker.
	KindEnd
	// KindLine is one scan line of pixel data.
	KindLine
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindEmpty:
		return "empty"
	case KindStart:
		return "start"
	case KindEnd:
		return "end"
	case KindLine:
		return "line"
	default:
		return "unknown"
	}
}

// Classify returns the kind of the datagram and its payload. The payload aliases
// the datagram and is the untrimmed byte range after the header; it is nil for
// malformed datagrams. Trailing whitespace only matters for marker detection:
// any other non-empty payload is a line, including all-black ones.
func Classify(datagram []byte) (Kind, []byte) {
	if len(datagram) < HeaderSize {
		return KindMalformed, nil
	}

	payload := datagram[HeaderSize:]
	if len(payload) == 0 {
		return KindEmpty, payload
	}
	trimmed := trimTrailing(payload)

	switch {
	case len(trimmed) == 0:
		return KindLine, payload
	case isRun(trimmed, StartSentinel):
		return KindStart, payload
	case isRun(trimmed, EndSentinel):
		return KindEnd, payload
	default:
		return KindLine, payload
	}
}

// trimTrailing drops trailing ASCII whitespace (space, \t, \n, \v, \f, \r).
// Other low bytes, NUL included, are pixel data.
func trimTrailing(p []byte) []byte {
	end := len(p)
	for end > 0 && isSpace(p[end-1]) {
		end--
	}
	return p[:end]
}

func isSpace(b byte) bool {
	return b == ' ' || (b >= '\t' && b <= '\r')
}

func isRun(p []byte, b byte) bool {
	for _, c := range p {
		if c != b {
			return false
		}
	}
	return true
}

// PixelCount returns the number of RGB565 samples carried by a line payload.
func PixelCount(payload []byte) int {
	return len(payload) / BytesPerPixel
}

// StartMarker builds a frame start datagram with a payload of n sentinel bytes.
func StartMarker(seq uint32, n int) []byte {
	return marker(seq, StartSentinel, n)
}

// EndMarker builds a frame end datagram with a payload of n sentinel bytes.
func EndMarker(seq uint32, n int) []byte {
	return marker(seq, EndSentinel, n)
}

func marker(seq uint32, sentinel byte, n int) []byte {
	if n < 1 {
		n = 1
	}
	buf := make([]byte, HeaderSize+n)
	binary.BigEndian.PutUint32(buf, seq)
	for i := HeaderSize; i < len(buf); i++ {
		buf[i] = sentinel
	}
	return buf
}

// LinePacket builds a line datagram carrying the given RGB565 payload.
func LinePacket(seq uint32, line []byte) []byte {
	buf := make([]byte, HeaderSize+len(line))
	binary.BigEndian.PutUint32(buf, seq)
	copy(buf[HeaderSize:], line)
	return buf
}

// PutPixel565 packs an 8-bit-per-channel color into dst[0:2] as big-endian RGB565.
func PutPixel565(dst []byte, r, g, b byte) {
	v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
	binary.BigEndian.PutUint16(dst, v)
}
