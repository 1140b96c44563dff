package presets

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doc-extractor/constants"
)

func TestBuiltin(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)
	require.Equal(t, []string{"contract", "default", "invoice", "resume"}, c.Names())

	list := c.List()
	require.Len(t, list, 4)
	require.Equal(t, "default", list[0].Name)

	def, ok := c.Get("default")
	require.True(t, ok)
	require.Len(t, def.Fields, 4)
	require.Equal(t, "key_points", def.Fields[3].Name)
	require.Equal(t, constants.FieldArray, def.Fields[3].Type)

	inv, ok := c.Get("invoice")
	require.True(t, ok)
	items := inv.Fields[4]
	require.Equal(t, "line_items", items.Name)
	require.Equal(t, constants.FieldArrayObject, items.Type)
	require.Len(t, items.ObjectSchema, 4)
	require.Equal(t, constants.FieldNumber, items.ObjectSchema[2].Type)

	resume, ok := c.Get("resume")
	require.True(t, ok)
	require.Len(t, resume.Fields, 6)

	_, ok = c.Get("receipt")
	require.False(t, ok)
}

func TestParse_Strict(t *testing.T) {
	_, err := Parse([]byte(`
presets:
  - name: x
    colour: red
    fields:
      - {name: a, type: text}
`))
	require.Error(t, err)
}

func TestParse_InvalidFields(t *testing.T) {
	_, err := Parse([]byte(`
presets:
  - name: broken
    fields:
      - {name: rows, type: array_object}
`))
	require.ErrorContains(t, err, `preset "broken"`)

	_, err = Parse([]byte(`
presets:
  - name: a
    fields: [{name: x}]
  - name: a
    fields: [{name: y}]
`))
	require.ErrorContains(t, err, "duplicate preset")
}

func TestParse_NormalizesSynonyms(t *testing.T) {
	c, err := Parse([]byte(`
presets:
  - name: shipping
    description: Shipping labels
    fields:
      - {name: Tracking Number, description: Carrier tracking id, type: string}
      - {name: weight, type: decimal}
`))
	require.NoError(t, err)
	p, _ := c.Get("shipping")
	require.Equal(t, "tracking_number", p.Fields[0].Name)
	require.Equal(t, constants.FieldText, p.Fields[0].Type)
	require.Equal(t, constants.FieldNumber, p.Fields[1].Type)
}
