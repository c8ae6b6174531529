package withdrawal

import (
	"encoding/json"
	"fmt"
	"math"
)

// StatusCode is the integer status the detail endpoint reports.
type StatusCode int

// Known status codes.
const (
	StatusProcessing StatusCode = 2
	StatusFailed     StatusCode = 3
	StatusSucceeded  StatusCode = 4
)

var statusLabels = map[StatusCode]string{
	StatusSucceeded:  "Succeeded",
	StatusFailed:     "Failed",
	StatusProcessing: "Processing",
}

// Label returns the human readable status, or "Unknown (<code>)".
func (s StatusCode) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("Unknown (%d)", int(s))
}

// StatusLabel maps a raw status value to its label. Values that are not an
// integer keep their textual form inside the Unknown label; a missing or null
// status is "Unknown (None)".
func StatusLabel(v any) string {
	if v == nil {
		return "Unknown (None)"
	}
	if code, ok := statusCode(v); ok {
		return code.Label()
	}
	return fmt.Sprintf("Unknown (%s)", stringValue(v))
}

// statusCode extracts an integral status code from a decoded JSON value.
func statusCode(v any) (StatusCode, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return StatusCode(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatStatus(f)
	case float64:
		return floatStatus(n)
	case int:
		return StatusCode(n), true
	case int64:
		return StatusCode(n), true
	default:
		return 0, false
	}
}

func floatStatus(f float64) (StatusCode, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return StatusCode(int64(f)), true
}
