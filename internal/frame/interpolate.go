package frame

// RepairStats counts what Repair did with the unreceived slots of one frame.
type RepairStats struct {
	Interpolated int // averaged from both neighbours
	Copied       int // copied from the single received neighbour
	Unresolved   int // no received neighbour, row keeps its previous contents
}

// Repair fills unreceived line slots from their immediate neighbours, working on
// the raw RGB565 payloads before conversion:
//   - both neighbours received: byte-wise average of the two payloads
//   - one neighbour received: a copy of it
//   - otherwise the slot stays nil
//
// Only neighbours that were actually received are consulted, so a substituted
// line never feeds another substitution.
func Repair(lines [][]byte, received []bool) RepairStats {
	var stats RepairStats
	n := len(lines)

	for i := 0; i < n; i++ {
		if received[i] {
			continue
		}

		var top, bottom []byte
		if i > 0 && received[i-1] {
			top = lines[i-1]
		}
		if i < n-1 && received[i+1] {
			bottom = lines[i+1]
		}

		switch {
		case len(top) > 0 && len(bottom) > 0:
			lines[i] = averageLines(top, bottom)
			stats.Interpolated++
		case len(top) > 0:
			lines[i] = top
			stats.Copied++
		case len(bottom) > 0:
			lines[i] = bottom
			stats.Copied++
		default:
			lines[i] = nil
			stats.Unresolved++
		}
	}

	return stats
}

// averageLines returns a line the length of top. Positions also present in bottom
// are averaged; the rest are copied from top.
func averageLines(top, bottom []byte) []byte {
	out := make([]byte, len(top))
	for j := range top {
		if j < len(bottom) {
			out[j] = byte((uint16(top[j]) + uint16(bottom[j])) / 2)
		} else {
			out[j] = top[j]
		}
	}
	return out
}
