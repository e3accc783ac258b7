package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/case-importer/internal/types"
)

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"C2", "C10", true},
		{"C10", "C2", false},
		{"c2", "C10", true},
		{"", "A1", true},
		{"A1", "", false},
		{"A", "A1", true},
		{"A-9", "A-10", true},
		{"7", "007", true},
		{"abc", "ABC", false},
		{"case99", "case100", true},
		{"x1y2", "x1y10", true},
	}

	for _, tt := range tests {
		t.Run(tt.a+"<"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, NaturalLess(tt.a, tt.b))
		})
	}
}

func TestNormalize_OrderAndDuplicates(t *testing.T) {
	rows := []types.RawRow{
		{"case_id": "C10", "name": "first"},
		{"case_id": "C2"},
		{"name": "no key"},
		{"case_id": "C10", "name": "second"},
		{"case_id": " C10 ", "name": "third"},
		{"name": "no key either"},
	}

	ordered, skipped := Normalize(rows)

	keys := make([]string, len(ordered))
	indexes := make([]int, len(ordered))
	dups := make([]bool, len(ordered))
	for i, p := range ordered {
		keys[i] = p.Key
		indexes[i] = p.Index
		dups[i] = p.Duplicate
	}

	assert.Equal(t, []string{"", "", "C2", "C10", "C10", "C10"}, keys)
	assert.Equal(t, []int{2, 5, 1, 0, 3, 4}, indexes)
	assert.Equal(t, []bool{false, false, false, true, true, false}, dups)
	assert.Equal(t, map[string]int{"C10": 2}, skipped)
}

func TestNormalize_CaseVariantsAreDistinctKeys(t *testing.T) {
	ordered, skipped := Normalize([]types.RawRow{{"case_id": "a1"}, {"case_id": "A1"}})

	assert.Len(t, ordered, 2)
	assert.Empty(t, skipped)
	assert.Equal(t, 0, ordered[0].Index)
}

func TestNormalize_Empty(t *testing.T) {
	ordered, skipped := Normalize(nil)
	assert.Empty(t, ordered)
	assert.Empty(t, skipped)
}
