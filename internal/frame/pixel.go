package frame

// Expand565 converts one big-endian RGB565 sample into 8-bit channels. Each field
// is shifted into the high bits and its own top bits are replicated into the low
// bits, so full-scale fields map to 255.
func Expand565(hi, lo byte) (r, g, b byte) {
	v := uint16(hi)<<8 | uint16(lo)

	r5 := byte(v>>11) & 0x1F
	g6 := byte(v>>5) & 0x3F
	b5 := byte(v) & 0x1F

	r = r5<<3 | r5>>2
	g = g6<<2 | g6>>4
	b = b5<<3 | b5>>2
	return r, g, b
}

// ConvertLine expands a line of RGB565 samples into RGB888 bytes in dst. It
// converts min(len(src)/2, len(dst)/3) pixels and returns that count; a trailing
// odd byte in src is ignored.
func ConvertLine(dst, src []byte) int {
	n := len(src) / 2
	if limit := len(dst) / BytesPerPixel; n > limit {
		n = limit
	}
	for j := 0; j < n; j++ {
		r, g, b := Expand565(src[j*2], src[j*2+1])
		dst[j*3] = r
		dst[j*3+1] = g
		dst[j*3+2] = b
	}
	return n
}
