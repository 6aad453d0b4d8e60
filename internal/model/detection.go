package model

// Detection represents a detected object in a capture, in display coordinates.
type Detection struct {
	ID         int64   `json:"id"`
	CaptureID  int64   `json:"capture_id"`
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}
