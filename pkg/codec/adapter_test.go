package codec

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bigIntAdapter() Adapter {
	return Func{
		Name: "bigint",
		Is: func(v any) bool {
			_, ok := v.(*big.Int)
			return ok
		},
		To: func(v any) (any, error) { return v.(*big.Int).String(), nil },
		From: func(v any) (any, error) {
			n, ok := new(big.Int).SetString(v.(string), 10)
			if !ok {
				return nil, errors.New("bad bigint")
			}
			return n, nil
		},
	}
}

func TestChainRoundTrip(t *testing.T) {
	c := MustChain(Time(), bigIntAdapter())
	when := time.Date(2024, 5, 6, 7, 8, 9, 10, time.UTC)
	n, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	in := map[string]any{
		"at":    when,
		"count": n,
		"list":  []any{when, "plain", 3},
		"name":  "post",
	}

	enc, err := c.Encode(in)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{tagPrefix + "time": "2024-05-06T07:08:09.00000001Z"}, enc.(map[string]any)["at"])

	dec, err := c.Decode(enc)
	require.NoError(t, err)
	out := dec.(map[string]any)
	assert.True(t, when.Equal(out["at"].(time.Time)))
	assert.Equal(t, 0, n.Cmp(out["count"].(*big.Int)))
	assert.Equal(t, "post", out["name"])
	assert.Equal(t, "plain", out["list"].([]any)[1])
}

func TestChainOrder(t *testing.T) {
	first := Func{Name: "first", Is: func(any) bool { return true }, To: func(any) (any, error) { return 1, nil }}
	second := Func{Name: "second", Is: func(any) bool { return true }, To: func(any) (any, error) { return 2, nil }}

	enc, err := MustChain(first, second).Encode("x")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{tagPrefix + "first": 1}, enc)
	assert.Equal(t, []string{"first", "second"}, MustChain(first, second).Keys())
}

func TestChainErrors(t *testing.T) {
	_, err := NewChain(Time(), Time())
	assert.Error(t, err)

	_, err = Default().Decode(map[string]any{tagPrefix + "nope": "x"})
	assert.ErrorContains(t, err, `no adapter registered for "nope"`)

	_, err = Default().Decode(map[string]any{tagPrefix + "time": 5})
	assert.Error(t, err)

	failing := Func{Name: "fail", Is: func(any) bool { return true }, To: func(any) (any, error) { return nil, errors.New("nope") }}
	_, err = MustChain(failing).Encode(1)
	assert.ErrorContains(t, err, `adapter "fail"`)
}

func TestNilChainPassesThrough(t *testing.T) {
	var c *Chain
	v, err := c.Encode(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, v)
}

func TestDurationAdapter(t *testing.T) {
	c := Default()
	enc, err := c.Encode(90 * time.Second)
	require.NoError(t, err)
	dec, err := c.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, dec)
}
