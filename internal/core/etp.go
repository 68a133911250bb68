package core

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Older data shapes embed the allocation inside the task label itself,
// e.g. "Due Diligence (3 ETP)". This adapter extracts it at the system
// boundary; the Task entity always carries an explicit ETP field and the
// engine never re-derives it from text.
var etpLabelPattern = regexp.MustCompile(`\(([0-9]+(?:[.,][0-9]+)?)\s*ETP\)`)

// ExtractETPFromLabel parses a "(<number> ETP)" tag out of a task label.
// It fails safe to 0.0 when no tag matches.
func ExtractETPFromLabel(text string) float64 {
	m := etpLabelPattern.FindStringSubmatch(text)
	if m == nil {
		return 0.0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0.0
	}
	return v
}

// CoerceETP converts a loosely typed allocation value into a float64.
// JSON clients send numbers, strings ("1.5") or json.Number depending on
// decoder settings; all three are accepted. Negative and unparsable values
// are rejected.
func CoerceETP(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, ErrInvalidETP
		}
		f = parsed
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", ".")
		if s == "" {
			return 0, ErrInvalidETP
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, ErrInvalidETP
		}
		f = parsed
	case nil:
		return 0, ErrInvalidETP
	default:
		return 0, ErrInvalidETP
	}
	if f < 0 {
		return 0, ErrNegativeETP
	}
	return f, nil
}
