package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeParams(t *testing.T) {
	type Params struct {
		Name  string   `param:"name"`
		ID    int      `param:"id"`
		Big   int64    `param:"big"`
		Count uint     `param:"count"`
		Ratio float64  `param:"ratio"`
		On    bool     `param:"on"`
		Slug  []string `param:"*"`
		Skip  string
	}

	var p Params
	err := DecodeParams(map[string]string{
		"name":  "test",
		"id":    "123",
		"big":   "9223372036854775807",
		"count": "7",
		"ratio": "0.5",
		"on":    "true",
		"*":     "docs/guide/intro",
	}, &p)
	require.NoError(t, err)

	assert.Equal(t, "test", p.Name)
	assert.Equal(t, 123, p.ID)
	assert.Equal(t, int64(9223372036854775807), p.Big)
	assert.Equal(t, uint(7), p.Count)
	assert.Equal(t, 0.5, p.Ratio)
	assert.True(t, p.On)
	assert.Equal(t, []string{"docs", "guide", "intro"}, p.Slug)
	assert.Empty(t, p.Skip)
}

func TestDecodeParamsErrors(t *testing.T) {
	type IntParams struct {
		ID int `param:"id"`
	}

	t.Run("invalid integer", func(t *testing.T) {
		var p IntParams
		err := DecodeParams(map[string]string{"id": "abc"}, &p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `parsing param "id"`)
	})

	t.Run("not a pointer", func(t *testing.T) {
		var p IntParams
		assert.Error(t, DecodeParams(map[string]string{"id": "1"}, p))
	})

	t.Run("pointer to non-struct", func(t *testing.T) {
		n := 1
		assert.Error(t, DecodeParams(map[string]string{"id": "1"}, &n))
	})

	t.Run("nil target", func(t *testing.T) {
		assert.NoError(t, DecodeParams(map[string]string{"id": "1"}, nil))
	})

	t.Run("missing params leave zero values", func(t *testing.T) {
		var p IntParams
		require.NoError(t, DecodeParams(map[string]string{}, &p))
		assert.Zero(t, p.ID)
	})
}

func TestParamsInto(t *testing.T) {
	type PostParams struct {
		PostID int    `param:"postId"`
		Lang   string `param:"lang"`
	}
	parse := ParamsInto[PostParams]()

	out, err := parse(map[string]string{"postId": "42"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"postId": 42}, out)

	_, err = parse(map[string]string{"postId": "x"})
	assert.Error(t, err)
}

func TestParseParam(t *testing.T) {
	tests := []struct {
		value string
		typ   string
		want  any
		err   bool
	}{
		{"42", "int", 42, false},
		{"42", "int64", int64(42), false},
		{"x", "int", nil, true},
		{"7", "uint", uint64(7), false},
		{"-7", "uint", nil, true},
		{"1.25", "float", 1.25, false},
		{"true", "bool", true, false},
		{"maybe", "bool", nil, true},
		{"6ba7b810-9dad-11d1-80b4-00c04fd430c8", "uuid", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", false},
		{"not-a-uuid", "uuid", nil, true},
		{"hello", "string", "hello", false},
		{"hello", "", "hello", false},
		{"hello", "date", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.value, func(t *testing.T) {
			got, err := ParseParam(tt.value, tt.typ)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypedParams(t *testing.T) {
	parse := TypedParams(map[string]string{"id": "int", "draft": "bool"})

	out, err := parse(map[string]string{"id": "5", "slug": "hello"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": 5}, out)

	_, err = IntParams("id")(map[string]string{"id": "five"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `param "id"`)
}
