package dto

import (
	"encoding/json"
	"time"
)

// CaptureInfo represents metadata about a stored capture.
type CaptureInfo struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Date      time.Time `json:"date"`
	TimeOfDay time.Time `json:"timeOfDay"`
	Sensor    string    `json:"sensor"`
	Size      int64     `json:"size"`
	Labels    []string  `json:"labels"`
}

// MarshalJSON customizes JSON output for CaptureInfo to format date and time-of-day.
func (c CaptureInfo) MarshalJSON() ([]byte, error) {
	type Alias CaptureInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      c.Date.Format("02-01-2006"),
		TimeOfDay: c.TimeOfDay.Format("15:04:05"),
		Alias:     (Alias)(c),
	})
}
