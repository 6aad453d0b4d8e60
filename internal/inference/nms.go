package inference

import (
	"image"
	"sort"
)

// NMS returns the indices of the candidates kept by non-maximum suppression, in
// descending score order. Candidates scoring at or below scoreThreshold are
// discarded first; a candidate is then kept if its overlap with every already kept
// box is at most iouThreshold. Equal scores keep their input order.
func NMS(candidates []Candidate, scoreThreshold, iouThreshold float32) []int {
	order := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if c.Score > scoreThreshold {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return candidates[order[a]].Score > candidates[order[b]].Score
	})

	keep := make([]int, 0, len(order))
	for _, idx := range order {
		suppressed := false
		for _, k := range keep {
			if iou(candidates[idx].Box, candidates[k].Box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			keep = append(keep, idx)
		}
	}
	return keep
}

// iou is the intersection over union of two boxes, 0 when either is empty.
func iou(a, b image.Rectangle) float32 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := area(inter)
	union := area(a) + area(b) - ia
	if union <= 0 {
		return 0
	}
	return float32(ia) / float32(union)
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
