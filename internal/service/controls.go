package service

import (
	"sensorlink/internal/dto"
	"sync"
)

// Control ranges.
const (
	BrightnessMin, BrightnessMax, BrightnessDefault = 0, 100, 50
	GammaMin, GammaMax                              = -100, 100
	SharpnessMin, SharpnessMax                      = 0, 100
	DenoiseMin, DenoiseMax                          = 0, 100
)

// Controls holds the display settings set by viewers. Values are clamped to range
// and otherwise only stored; flips apply to the preview.
type Controls struct {
	mu       sync.RWMutex
	settings dto.Controls
}

// NewControls returns controls at their defaults.
func NewControls() *Controls {
	return &Controls{settings: dto.Controls{Brightness: BrightnessDefault}}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetBrightness stores the clamped value and returns it.
func (c *Controls) SetBrightness(v int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Brightness = clampInt(v, BrightnessMin, BrightnessMax)
	return c.settings.Brightness
}

// SetGamma stores the clamped value and returns it.
func (c *Controls) SetGamma(v int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Gamma = clampInt(v, GammaMin, GammaMax)
	return c.settings.Gamma
}

// SetSharpness stores the clamped value and returns it.
func (c *Controls) SetSharpness(v int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Sharpness = clampInt(v, SharpnessMin, SharpnessMax)
	return c.settings.Sharpness
}

// SetDenoise stores the clamped value and returns it.
func (c *Controls) SetDenoise(v int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Denoise = clampInt(v, DenoiseMin, DenoiseMax)
	return c.settings.Denoise
}

func (c *Controls) SetFlipHorizontal(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.FlipHorizontal = on
}

func (c *Controls) SetFlipVertical(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.FlipVertical = on
}

// Flips returns the preview flip toggles.
func (c *Controls) Flips() (horizontal, vertical bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings.FlipHorizontal, c.settings.FlipVertical
}

// Settings returns a copy of the current values.
func (c *Controls) Settings() dto.Controls {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// Apply sets every non-nil field of u and returns the resulting settings.
func (c *Controls) Apply(u dto.ControlsUpdate) dto.Controls {
	if u.Brightness != nil {
		c.SetBrightness(*u.Brightness)
	}
	if u.Gamma != nil {
		c.SetGamma(*u.Gamma)
	}
	if u.Sharpness != nil {
		c.SetSharpness(*u.Sharpness)
	}
	if u.Denoise != nil {
		c.SetDenoise(*u.Denoise)
	}
	if u.FlipHorizontal != nil {
		c.SetFlipHorizontal(*u.FlipHorizontal)
	}
	if u.FlipVertical != nil {
		c.SetFlipVertical(*u.FlipVertical)
	}
	return c.Settings()
}
