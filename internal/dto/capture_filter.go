// CaptureFilters describe user-provided filters to narrow the capture list.
package dto

import "time"

type CaptureFilters struct {
	Kind       string
	Sensor     string
	Label      string
	DateAfter  time.Time
	DateBefore time.Time
	TimeAfter  string
	TimeBefore string
	Limit      int
	Offset     int
}
