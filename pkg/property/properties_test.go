package property

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperties_Lookup(t *testing.T) {
	props := Properties{
		"size":  Of(3),
		"value": Of(0.5),
	}

	size, err := Lookup[int](props, "size")
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	_, err = Lookup[int](props, "value")
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Contains(t, err.Error(), `"value"`)

	_, err = Lookup[int](props, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	props["empty"] = Empty()
	_, err = Lookup[int](props, "empty")
	assert.ErrorIs(t, err, ErrEmptyAccess)
}

func TestProperties_CloneIsDeep(t *testing.T) {
	props := Properties{"list": Of([]int{1})}
	clone := props.Clone()
	require.True(t, props.Equal(clone))

	ref, err := Ref[[]int](clone["list"])
	require.NoError(t, err)
	*ref = append(*ref, 2)

	assert.Equal(t, []int{1}, MustValue[[]int](props["list"]))
	assert.Equal(t, []int{1, 2}, MustValue[[]int](clone["list"]))

	clone["extra"] = Of(true)
	_, ok := props["extra"]
	assert.False(t, ok)

	assert.Nil(t, Properties(nil).Clone())
}

func TestProperties_Equal(t *testing.T) {
	a := Properties{"size": Of(4)}
	assert.True(t, a.Equal(Properties{"size": Of(4)}))
	assert.False(t, a.Equal(Properties{"size": Of(4.0)}))
	assert.False(t, a.Equal(Properties{"count": Of(4)}))
	assert.False(t, a.Equal(Properties{"size": Of(4), "x": Of(1)}))
	assert.True(t, Properties{}.Equal(nil))
}

func TestProperties_KeysAndString(t *testing.T) {
	props := Properties{"b": Of(2), "a": Of("x")}
	assert.Equal(t, []string{"a", "b"}, props.Keys())
	assert.Equal(t, "{a: x, b: 2}", props.String())
}

func TestProperties_JSON(t *testing.T) {
	props := Properties{"size": Of(3), "time": Of("now")}
	data, err := json.Marshal(props)
	require.NoError(t, err)
	assert.JSONEq(t, `{"size":3,"time":"now"}`, string(data))
}
