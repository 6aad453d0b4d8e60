package inference

import (
	"fmt"
	"strconv"
	"strings"
)

var classLabels = map[int]string{
	0: "object",
}

// ClassLabel maps model class IDs to labels. The bundled model has one class.
func ClassLabel(classID int) string {
	if label, exists := classLabels[classID]; exists {
		return label
	}
	return fmt.Sprintf("class%d", classID)
}

// ClassID is the inverse of ClassLabel. Unknown labels map to -1.
func ClassID(label string) int {
	for id, l := range classLabels {
		if l == label {
			return id
		}
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(label, "class")); err == nil && strings.HasPrefix(label, "class") && n >= 0 {
		return n
	}
	return -1
}
