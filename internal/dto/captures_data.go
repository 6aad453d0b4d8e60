// CapturesData is a paginated response payload for the captures list.
package dto

type CapturesData struct {
	Captures    []CaptureInfo `json:"captures"`
	CaptureDir  string        `json:"captureDir"`
	Size        int64         `json:"size"`
	Length      int           `json:"length"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Limit       int           `json:"pageSize"`
	Labels      []string      `json:"labels"`
}
