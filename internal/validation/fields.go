package validation

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jonathan/case-importer/internal/types"
)

// Accepted spellings for each logical column. The first entry is the canonical name
// used in error messages.
var (
	caseKeyAliases       = []string{"case_id", "caseKey", "case_key", "caseId", "key"}
	applicantNameAliases = []string{"applicant_name", "applicantName", "name"}
	dobAliases           = []string{"dob", "date_of_birth", "dateOfBirth"}
	emailAliases         = []string{"email"}
	phoneAliases         = []string{"phone"}
	categoryAliases      = []string{"category"}
	priorityAliases      = []string{"priority"}
	statusAliases        = []string{"status"}
)

// lookup returns the first non-null value among the aliases. A column that is
// present but null under every alias reports (nil, true).
func lookup(row types.RawRow, aliases []string) (any, bool) {
	present := false
	for _, a := range aliases {
		v, ok := row[a]
		if !ok {
			continue
		}
		if v != nil {
			return v, true
		}
		present = true
	}
	return nil, present
}

// CheckTypes verifies every value of the row is a string, a number or nil.
func CheckTypes(row types.RawRow) error {
	for field, v := range row {
		switch v.(type) {
		case nil, string, float64, float32, int, int32, int64, json.Number:
		default:
			return &TypeError{Field: field, Value: v}
		}
	}
	return nil
}

// Text converts a scalar row value to trimmed text. Numbers are rendered without
// exponent or trailing zeros so a numeric case_id of 1001 reads "1001".
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return strings.TrimSpace(val.String())
	default:
		return ""
	}
}

// CaseKey extracts the trimmed business key of a row, empty when absent.
func CaseKey(row types.RawRow) string {
	v, _ := lookup(row, caseKeyAliases)
	return Text(v)
}
