package importer

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/jonathan/case-importer/internal/schemas"
	"github.com/jonathan/case-importer/internal/types"
	"github.com/jonathan/case-importer/internal/validation"
)

// wrapperKeys are the object keys that may hold the row list, in precedence order.
var wrapperKeys = []string{"rows", "data", "cases"}

// ParseBatch decodes an import payload: either a JSON array of row objects or an
// object holding that array under rows, data or cases.
func ParseBatch(data []byte) ([]types.RawRow, error) {
	if err := schemas.ValidateImportBatch(data); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			return nil, &FatalInputError{Message: "expected a list of rows or a wrapper object", Index: -1, Cause: err}
		}
		return nil, &FatalInputError{Message: "malformed JSON", Index: -1, Cause: err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &FatalInputError{Message: "malformed JSON", Index: -1, Cause: err}
	}

	list, ok := doc.([]any)
	if !ok {
		obj, _ := doc.(map[string]any)
		for _, k := range wrapperKeys {
			if inner, found := obj[k].([]any); found {
				list, ok = inner, true
				break
			}
		}
	}
	if !ok {
		return nil, &FatalInputError{Message: "expected a list of rows or a wrapper object", Index: -1}
	}

	rows := make([]types.RawRow, 0, len(list))
	for i, item := range list {
		obj, isObj := item.(map[string]any)
		if !isObj {
			return nil, &FatalInputError{Message: "row is not an object", Index: i}
		}
		rows = append(rows, types.RawRow(obj))
	}
	return rows, nil
}

// CheckRows verifies every row holds only string, number or null values.
func CheckRows(rows []types.RawRow) error {
	for i, row := range rows {
		if row == nil {
			return &FatalInputError{Message: "row is not an object", Index: i}
		}
		if err := validation.CheckTypes(row); err != nil {
			return &FatalInputError{Message: "unsupported value type", Index: i, Cause: err}
		}
	}
	return nil
}
