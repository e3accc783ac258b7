package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateImportBatch_Accepts(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "bare list", doc: `[{"case_id": "A1", "email": "a@x.com"}, {"case_id": 2, "dob": null}]`},
		{name: "empty list", doc: `[]`},
		{name: "rows wrapper", doc: `{"rows": [{"case_id": "A1"}]}`},
		{name: "data wrapper", doc: `{"data": [{"case_id": "A1"}]}`},
		{name: "cases wrapper", doc: `{"cases": [{"case_id": "A1"}], "source": "upload.csv"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, ValidateImportBatch([]byte(tt.doc)))
		})
	}
}

func TestValidateImportBatch_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "scalar", doc: `"rows"`},
		{name: "object without list", doc: `{"source": "upload.csv"}`},
		{name: "list of scalars", doc: `[1, 2, 3]`},
		{name: "nested value", doc: `[{"case_id": "A1", "tags": ["x"]}]`},
		{name: "boolean value", doc: `[{"case_id": "A1", "active": true}]`},
		{name: "wrapper not a list", doc: `{"rows": {"case_id": "A1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImportBatch([]byte(tt.doc))
			require.Error(t, err)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestValidateImportBatch_MalformedJSON(t *testing.T) {
	err := ValidateImportBatch([]byte(`[{"case_id": `))
	var le *SchemaLoadError
	assert.ErrorAs(t, err, &le)
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type": "object", "required": ["name"]}`
	assert.NoError(t, ValidateJSONString(schema, `{"name": "x"}`))

	err := ValidateJSONString(schema, `{}`)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "(root)", ve.Errors[0].Field)
}
