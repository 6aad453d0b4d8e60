package dto

// ControlsUpdate is a partial update of the display controls; nil fields are
// left unchanged.
type ControlsUpdate struct {
	Brightness     *int  `json:"brightness,omitempty"`
	Gamma          *int  `json:"gamma,omitempty"`
	Sharpness      *int  `json:"sharpness,omitempty"`
	Denoise        *int  `json:"denoise,omitempty"`
	FlipHorizontal *bool `json:"flipHorizontal,omitempty"`
	FlipVertical   *bool `json:"flipVertical,omitempty"`
}
