package frame

import (
	"bytes"
	"testing"
)

func TestRepair(t *testing.T) {
	a := []byte{10, 20, 30, 40}
	b := []byte{20, 40, 31, 255}

	tests := []struct {
		name     string
		lines    [][]byte
		received []bool
		want     [][]byte
		stats    RepairStats
	}{
		{
			name:     "both neighbours averaged",
			lines:    [][]byte{a, nil, b},
			received: []bool{true, false, true},
			want:     [][]byte{a, {15, 30, 30, 147}, b},
			stats:    RepairStats{Interpolated: 1},
		},
		{
			name:     "only top neighbour",
			lines:    [][]byte{a, nil, nil},
			received: []bool{true, false, false},
			want:     [][]byte{a, a, nil},
			stats:    RepairStats{Copied: 1, Unresolved: 1},
		},
		{
			name:     "only bottom neighbour",
			lines:    [][]byte{nil, b},
			received: []bool{false, true},
			want:     [][]byte{b, b},
			stats:    RepairStats{Copied: 1},
		},
		{
			name:     "gap of three does not propagate",
			lines:    [][]byte{a, nil, nil, nil, b},
			received: []bool{true, false, false, false, true},
			want:     [][]byte{a, a, nil, b, b},
			stats:    RepairStats{Copied: 2, Unresolved: 1},
		},
		{
			name:     "nothing received",
			lines:    [][]byte{nil, nil},
			received: []bool{false, false},
			want:     [][]byte{nil, nil},
			stats:    RepairStats{Unresolved: 2},
		},
	}

	for _, tt := range tests {
		stats := Repair(tt.lines, tt.received)
		if stats != tt.stats {
			t.Errorf("%s: stats = %+v, expected %+v", tt.name, stats, tt.stats)
		}
		for i := range tt.want {
			if !bytes.Equal(tt.lines[i], tt.want[i]) {
				t.Errorf("%s: line %d = %v, expected %v", tt.name, i, tt.lines[i], tt.want[i])
			}
		}
	}
}

func TestAverageLines_DifferentLengths(t *testing.T) {
	got := averageLines([]byte{100, 100, 7}, []byte{0, 50})
	want := []byte{50, 75, 7}
	if !bytes.Equal(got, want) {
		t.Errorf("averageLines = %v, expected %v", got, want)
	}
}
