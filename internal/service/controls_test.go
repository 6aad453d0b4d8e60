package service

import (
	"sensorlink/internal/dto"
	"testing"
)

func TestControls_Defaults(t *testing.T) {
	got := NewControls().Settings()
	want := dto.Controls{Brightness: 50}
	if got != want {
		t.Errorf("Defaults = %+v, expected %+v", got, want)
	}
}

func TestControls_Clamp(t *testing.T) {
	c := NewControls()

	tests := []struct {
		name string
		set  func(int) int
		in   int
		want int
	}{
		{"brightness low", c.SetBrightness, -1, 0},
		{"brightness high", c.SetBrightness, 101, 100},
		{"brightness in range", c.SetBrightness, 73, 73},
		{"gamma low", c.SetGamma, -150, -100},
		{"gamma high", c.SetGamma, 150, 100},
		{"gamma negative in range", c.SetGamma, -20, -20},
		{"sharpness", c.SetSharpness, 200, 100},
		{"denoise", c.SetDenoise, -5, 0},
	}

	for _, tt := range tests {
		if got := tt.set(tt.in); got != tt.want {
			t.Errorf("%s: set(%d) = %d, expected %d", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestControls_Apply(t *testing.T) {
	c := NewControls()
	gamma, flip := 400, true

	got := c.Apply(dto.ControlsUpdate{Gamma: &gamma, FlipVertical: &flip})

	want := dto.Controls{Brightness: 50, Gamma: 100, FlipVertical: true}
	if got != want {
		t.Errorf("Apply = %+v, expected %+v", got, want)
	}
	if h, v := c.Flips(); h || !v {
		t.Errorf("Flips = (%v, %v), expected (false, true)", h, v)
	}
}
