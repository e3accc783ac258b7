package validation

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/case-importer/internal/types"
	"github.com/ttacon/libphonenumber"
)

var priorityLabels = map[string]int{
	"HIGH":   types.PriorityHigh,
	"MEDIUM": types.PriorityMedium,
	"LOW":    types.PriorityLow,
}

// CoercePriority maps numeric input or a HIGH/MEDIUM/LOW label to 1..3. Any other
// value, including an out-of-range integer, yields nil.
func CoercePriority(v any) *int {
	var n int
	switch val := v.(type) {
	case nil:
		return nil
	case int:
		n = val
	case int32:
		n = int(val)
	case int64:
		n = int(val)
	case float32:
		return CoercePriority(float64(val))
	case float64:
		if val != math.Trunc(val) {
			return nil
		}
		n = int(val)
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			return nil
		}
		n = int(i)
	case string:
		s := strings.TrimSpace(val)
		if p, ok := priorityLabels[strings.ToUpper(s)]; ok {
			return &p
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return nil
		}
		n = i
	default:
		return nil
	}
	if n < types.PriorityLow || n > types.PriorityHigh {
		return nil
	}
	return &n
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
	time.RFC3339,
}

// ParseDate parses a calendar date in one of the accepted layouts. Unparsable or
// non-string input yields nil rather than an error.
func ParseDate(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	return nil
}

// NormalizePhone formats a phone number as E.164 when it is a valid number for the
// region. Anything else is returned trimmed and otherwise untouched.
func NormalizePhone(raw, region string) string {
	s := strings.TrimSpace(raw)
	if s == "" || region == "" {
		return s
	}
	num, err := libphonenumber.Parse(s, region)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return s
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}
