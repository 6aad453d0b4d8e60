package inference

import (
	"image"
	"reflect"
	"sensorlink/internal/frame"
	"testing"
)

func TestNMS(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		want       []int
	}{
		{
			name: "overlapping box suppressed",
			candidates: []Candidate{
				{Box: image.Rect(0, 0, 10, 10), Score: 0.8},
				{Box: image.Rect(1, 1, 11, 11), Score: 0.9},
			},
			want: []int{1},
		},
		{
			name: "disjoint boxes kept in score order",
			candidates: []Candidate{
				{Box: image.Rect(0, 0, 10, 10), Score: 0.5},
				{Box: image.Rect(20, 20, 30, 30), Score: 0.9},
			},
			want: []int{1, 0},
		},
		{
			name: "score at threshold discarded",
			candidates: []Candidate{
				{Box: image.Rect(0, 0, 10, 10), Score: 0.3},
				{Box: image.Rect(20, 20, 30, 30), Score: 0.31},
			},
			want: []int{1},
		},
		{
			// 10x10 vs 10x5 inside it: IoU 0.5, kept
			name: "overlap at threshold kept",
			candidates: []Candidate{
				{Box: image.Rect(0, 0, 10, 10), Score: 0.9},
				{Box: image.Rect(0, 0, 10, 5), Score: 0.8},
			},
			want: []int{0, 1},
		},
		{
			name: "equal scores keep input order",
			candidates: []Candidate{
				{Box: image.Rect(0, 0, 10, 10), Score: 0.7},
				{Box: image.Rect(50, 50, 60, 60), Score: 0.7},
			},
			want: []int{0, 1},
		},
		{
			name: "empty",
			want: []int{},
		},
	}

	for _, tt := range tests {
		got := NMS(tt.candidates, 0.3, 0.5)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: NMS = %v, expected %v", tt.name, got, tt.want)
		}
	}
}

func TestScoreFilter(t *testing.T) {
	in := []Candidate{{Score: 0.84}, {Score: 0.85}, {Score: 0.99}}
	out := NewScoreFilter(0.85)(in)
	if len(out) != 2 || out[0].Score != 0.85 || out[1].Score != 0.99 {
		t.Errorf("Unexpected filter output %+v", out)
	}
}

func TestScale(t *testing.T) {
	out := Scale([]Candidate{{Box: image.Rect(1, 2, 3, 4), Score: 0.9, ClassID: 7}}, 2)
	want := Detection{Box: image.Rect(2, 4, 6, 8), Score: 0.9, ClassID: 7}
	if len(out) != 1 || out[0] != want {
		t.Errorf("Scale = %+v, expected %+v", out, want)
	}
}

func TestSnapshotBuffer(t *testing.T) {
	buf := NewSnapshotBuffer(3, 2)
	if buf.Copy() != nil {
		t.Fatal("Expected nil copy before the first write")
	}

	buf.SetPixel(5, 5, 1, 1, 1)
	if buf.Copy() != nil {
		t.Error("Out of range SetPixel must not allocate")
	}

	buf.SetPixel(2, 1, 9, 8, 7)
	c := buf.Copy()
	if r, g, b := c.At(2, 1); r != 9 || g != 8 || b != 7 {
		t.Errorf("Pixel = (%d,%d,%d), expected (9,8,7)", r, g, b)
	}

	c.Set(2, 1, 0, 0, 0)
	if r, _, _ := buf.Copy().At(2, 1); r != 9 {
		t.Error("Copy is not independent")
	}

	small := frame.NewRaster(1, 1)
	small.Set(0, 0, 4, 4, 4)
	buf.Load(small)
	c = buf.Copy()
	if r, _, _ := c.At(0, 0); r != 4 {
		t.Error("Load did not copy the overlapping region")
	}
	if r, _, _ := c.At(2, 1); r != 9 {
		t.Error("Load of a smaller raster clobbered pixels outside it")
	}
}

func TestClassLabel(t *testing.T) {
	if ClassLabel(0) != "object" || ClassLabel(3) != "class3" {
		t.Errorf("Unexpected labels %q %q", ClassLabel(0), ClassLabel(3))
	}
}

func TestClassID(t *testing.T) {
	tests := map[string]int{
		"object":  0,
		"class3":  3,
		"class":   -1,
		"classx":  -1,
		"person":  -1,
		"class-2": -1,
	}
	for label, want := range tests {
		if got := ClassID(label); got != want {
			t.Errorf("ClassID(%q) = %d, expected %d", label, got, want)
		}
		if want >= 0 && ClassLabel(want) != label {
			t.Errorf("ClassLabel(ClassID(%q)) = %q", label, ClassLabel(want))
		}
	}
}
