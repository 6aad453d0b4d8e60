package dto

// Status is the live receiver state reported to viewers and /api/status.
type Status struct {
	Sensor          string   `json:"sensor"`
	FPS             int      `json:"fps"`
	FramesCompleted uint64   `json:"framesCompleted"`
	Recording       bool     `json:"recording"`
	InferenceBusy   bool     `json:"inferenceBusy"`
	Controls        Controls `json:"controls"`
}

// Controls mirrors the adjustable display settings.
type Controls struct {
	Brightness     int  `json:"brightness"`
	Gamma          int  `json:"gamma"`
	Sharpness      int  `json:"sharpness"`
	Denoise        int  `json:"denoise"`
	FlipHorizontal bool `json:"flipHorizontal"`
	FlipVertical   bool `json:"flipVertical"`
}
