package inference

import "image"

// Postprocessor filters or modifies a set of candidates.
type Postprocessor func([]Candidate) []Candidate

// NewScoreFilter keeps candidates with a score of at least conf.
func NewScoreFilter(conf float32) Postprocessor {
	return func(in []Candidate) []Candidate {
		out := make([]Candidate, 0, len(in))
		for _, c := range in {
			if c.Score >= conf {
				out = append(out, c)
			}
		}
		return out
	}
}

// NewNMSFilter applies non-maximum suppression with the given thresholds.
func NewNMSFilter(scoreThreshold, iouThreshold float32) Postprocessor {
	return func(in []Candidate) []Candidate {
		keep := NMS(in, scoreThreshold, iouThreshold)
		out := make([]Candidate, len(keep))
		for i, idx := range keep {
			out[i] = in[idx]
		}
		return out
	}
}

// Scale maps candidates to display coordinates by multiplying every box coordinate
// by factor.
func Scale(in []Candidate, factor int) []Detection {
	out := make([]Detection, len(in))
	for i, c := range in {
		out[i] = Detection{
			Box: image.Rect(
				c.Box.Min.X*factor, c.Box.Min.Y*factor,
				c.Box.Max.X*factor, c.Box.Max.Y*factor,
			),
			Score:   c.Score,
			ClassID: c.ClassID,
		}
	}
	return out
}
