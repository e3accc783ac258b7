package importer

import (
	"sort"
	"strings"

	"github.com/jonathan/case-importer/internal/types"
	"github.com/jonathan/case-importer/internal/validation"
)

// PendingRow is a row waiting to be reconciled.
type PendingRow struct {
	Index     int // position in the submitted list
	Key       string
	Row       types.RawRow
	Duplicate bool // an equal key appears later in sorted order
}

// Normalize orders rows by case key using a natural, case-insensitive comparison
// and marks every occurrence but the last of a repeated key as a duplicate. The
// returned map holds, per key, how many earlier occurrences were skipped.
// Rows without a key are never duplicates.
func Normalize(rows []types.RawRow) ([]PendingRow, map[string]int) {
	pending := make([]PendingRow, len(rows))
	for i, row := range rows {
		pending[i] = PendingRow{Index: i, Key: validation.CaseKey(row), Row: row}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return NaturalLess(pending[i].Key, pending[j].Key)
	})

	last := make(map[string]int, len(pending))
	for pos, p := range pending {
		if p.Key != "" {
			last[p.Key] = pos
		}
	}

	skipped := make(map[string]int)
	for pos := range pending {
		key := pending[pos].Key
		if key == "" || last[key] == pos {
			continue
		}
		pending[pos].Duplicate = true
		skipped[key]++
	}
	return pending, skipped
}

// NaturalLess compares keys case-insensitively, treating runs of digits as numbers
// so that "C2" sorts before "C10".
func NaturalLess(a, b string) bool {
	return naturalCompare(strings.ToLower(a), strings.ToLower(b)) < 0
}

func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		ca, cb := a[0], b[0]
		if isDigit(ca) && isDigit(cb) {
			da, restA := digitRun(a)
			db, restB := digitRun(b)
			if c := compareNumeric(da, db); c != 0 {
				return c
			}
			a, b = restA, restB
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		a, b = a[1:], b[1:]
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

// compareNumeric compares two digit strings by value, then by length so that
// "7" sorts before "007".
func compareNumeric(a, b string) int {
	ta := strings.TrimLeft(a, "0")
	tb := strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return 0
}

func digitRun(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
