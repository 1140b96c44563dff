package jsonvalue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_Kinds(t *testing.T) {
	v, err := ParseString(`{"b":true,"n":1.50,"s":"x","a":[1,"two",null],"o":{"k":false},"z":null}`)
	require.NoError(t, err)
	require.Equal(t, Object, v.Kind())
	require.Equal(t, []string{"b", "n", "s", "a", "o", "z"}, v.Keys())

	b, _ := v.Field("b")
	got, ok := b.Bool()
	require.True(t, ok)
	require.True(t, got)

	n, _ := v.Field("n")
	num, ok := n.Number()
	require.True(t, ok)
	require.Equal(t, 1.5, num)

	a, _ := v.Field("a")
	require.Equal(t, 3, a.Len())
	second, ok := a.Index(1)
	require.True(t, ok)
	s, _ := second.Str()
	require.Equal(t, "two", s)
	_, ok = a.Index(3)
	require.False(t, ok)

	z, ok := v.Field("z")
	require.True(t, ok)
	require.True(t, z.IsNull())

	_, ok = v.Field("missing")
	require.False(t, ok)
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "no json here", `{"a":}`, `{"a":1} trailing`} {
		_, err := ParseString(in)
		require.ErrorIs(t, err, ErrInvalidJSON, in)
	}
}

func TestMarshal_PreservesOrderAndLiterals(t *testing.T) {
	in := `{"z":1.50,"a":[{"c":"q\"uote"}],"m":null}`
	v := MustParse(in)
	out, err := json.Marshal(v)
	require.NoError(t, err)
	require.Equal(t, in, string(out))
}

func TestUnmarshalInsideStruct(t *testing.T) {
	var doc struct {
		Data *Value `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"total":42}}`), &doc))
	require.NotNil(t, doc.Data)
	require.JSONEq(t, `{"total":42}`, doc.Data.String())
}

func TestInterface(t *testing.T) {
	v := MustParse(`{"a":[1,true,"x",null]}`)
	require.Equal(t, map[string]any{"a": []any{1.0, true, "x", nil}}, v.Interface())
}

func TestConstructors(t *testing.T) {
	v := NewObject(
		Member{Key: "title", Value: NewString("Q3")},
		Member{Key: "items", Value: NewArray()},
		Member{Key: "score", Value: NewNumber(87)},
		Member{Key: "ok", Value: NewBool(false)},
		Member{Key: "none", Value: NewNull()},
	)
	require.Equal(t, `{"title":"Q3","items":[],"score":87,"ok":false,"none":null}`, v.String())
}

func TestField_DuplicateKeyLastWins(t *testing.T) {
	v := MustParse(`{"a":1,"a":2}`)
	a, ok := v.Field("a")
	require.True(t, ok)
	n, _ := a.Number()
	require.Equal(t, 2.0, n)
}
