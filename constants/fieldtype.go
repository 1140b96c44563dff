package constants

import (
	"strings"
)

type FieldType string

const (
	FieldText        FieldType = "text"
	FieldNumber      FieldType = "number"
	FieldBoolean     FieldType = "boolean"
	FieldDate        FieldType = "date"
	FieldArray       FieldType = "array"
	FieldArrayObject FieldType = "array_object"
)

var allFieldTypes = []FieldType{
	FieldText,
	FieldNumber,
	FieldBoolean,
	FieldDate,
	FieldArray,
	FieldArrayObject,
}

func FieldTypesAsStrings() []string {
	result := make([]string, len(allFieldTypes))
	for i, ft := range allFieldTypes {
		result[i] = string(ft)
	}
	return result
}

// CanonicalizeFieldType maps a type name (or a common synonym) onto a FieldType.
// An empty input defaults to text.
func CanonicalizeFieldType(input string) (FieldType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return FieldText, true
	}

	// synonyms map
	synonyms := map[string]FieldType{
		"string":       FieldText,
		"str":          FieldText,
		"integer":      FieldNumber,
		"int":          FieldNumber,
		"float":        FieldNumber,
		"decimal":      FieldNumber,
		"bool":         FieldBoolean,
		"list":         FieldArray,
		"object_array": FieldArrayObject,
		"table":        FieldArrayObject,
	}
	if ft, ok := synonyms[normalized]; ok {
		return ft, true
	}

	for _, ft := range allFieldTypes {
		if normalized == string(ft) {
			return ft, true
		}
	}
	return "", false
}

// Scalar reports whether values of this type are single JSON scalars.
func (t FieldType) Scalar() bool {
	return t != FieldArray && t != FieldArrayObject
}
