package schema

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doc-extractor/constants"
	"github.com/joseph-ayodele/doc-extractor/internal/common"
)

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Invoice Number":   "invoice_number",
		"  total  ":        "total",
		"Line-Items (all)": "line_items_all",
		"already_snake":    "already_snake",
		"Due   Date":       "due_date",
		"__weird__":        "weird",
		"Montant TTC €":    "montant_ttc",
		"":                 "",
	}
	for in, want := range tests {
		require.Equal(t, want, NormalizeName(in), in)
	}
}

func TestParseFields_Valid(t *testing.T) {
	fields, err := ParseFields([]byte(`[
		{"name":"Invoice Number","description":"Invoice id","type":"string"},
		{"name":"total","description":"Grand total","type":"number"},
		{"name":"paid","type":"bool"},
		{"name":"line items","description":"Rows","type":"array_object","objectSchema":[
			{"name":"Description","description":"Item","type":"text"},
			{"name":"amount","description":"Price","type":"decimal"}
		]}
	]`))
	require.NoError(t, err)
	require.Len(t, fields, 4)
	require.Equal(t, Field{Name: "invoice_number", Description: "Invoice id", Type: constants.FieldText}, fields[0])
	require.Equal(t, constants.FieldNumber, fields[1].Type)
	require.Equal(t, constants.FieldBoolean, fields[2].Type)
	require.Equal(t, "line_items", fields[3].Name)
	require.Equal(t, []Field{
		{Name: "description", Description: "Item", Type: constants.FieldText},
		{Name: "amount", Description: "Price", Type: constants.FieldNumber},
	}, fields[3].ObjectSchema)
}

func TestParseFields_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"empty", ``, "Custom fields are required"},
		{"not json", `[{"name":`, "Invalid custom fields JSON"},
		{"not array", `{"name":"total"}`, "Invalid custom fields"},
		{"missing name", `[{"type":"text"}]`, "Invalid custom fields"},
		{"no fields", `[]`, "at least one field"},
		{"unknown type", `[{"name":"x","type":"blob"}]`, "fields[0].type must be one of"},
		{"duplicate", `[{"name":"Total"},{"name":"total"}]`, "duplicates fields[0]"},
		{"blank name", `[{"name":" - "}]`, "fields[0].name is required"},
		{"missing objectSchema", `[{"name":"rows","type":"array_object"}]`, "objectSchema is required"},
		{"objectSchema on scalar", `[{"name":"x","type":"text","objectSchema":[{"name":"y"}]}]`, "only allowed for array_object"},
		{"long name", `[{"name":"` + strings.Repeat("a", MaxNameLength+1) + `"}]`, "fields[0].name must be at most 64 characters"},
		{"long nested description", `[{"name":"rows","type":"array_object","objectSchema":[{"name":"sku","description":"` + strings.Repeat("d", MaxDescriptionLength+1) + `"}]}]`, "fields[0].objectSchema[0].description must be at most 500 characters"},
		{"nested array_object", `[{"name":"rows","type":"array_object","objectSchema":[{"name":"sub","type":"array_object","objectSchema":[{"name":"z"}]}]}]`, "cannot be nested"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFields([]byte(tt.input))
			require.Error(t, err)
			require.Equal(t, http.StatusBadRequest, common.HTTPStatus(err))
			require.Contains(t, err.Error(), tt.message)
		})
	}
}
