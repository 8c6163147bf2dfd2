package polkadot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageChangeSet_Lookup(t *testing.T) {
	var set StorageChangeSet
	require.NoError(t, json.Unmarshal([]byte(`{"block":"0x01","changes":[["0xAB","0x0102"],["0xcd",null]]}`), &set))

	v, found, err := set.Lookup("0xab")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte{1, 2}, v)

	v, found, err = set.Lookup("0xcd")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, v)

	_, found, err = set.Lookup("0xef")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorageChange_Malformed(t *testing.T) {
	var set StorageChangeSet
	assert.Error(t, json.Unmarshal([]byte(`{"changes":[["0xab"]]}`), &set))
	assert.Error(t, json.Unmarshal([]byte(`{"changes":[[null,"0x00"]]}`), &set))
}

func TestChangeFor(t *testing.T) {
	extract := changeFor("0xab")

	v, err := extract(json.RawMessage(`{"block":"0x01","changes":[["0xab","0x07"]]}`))
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, v)

	_, err = extract(json.RawMessage(`{"block":"0x01","changes":[["0xcd","0x07"]]}`))
	assert.Error(t, err)

	_, err = extract(json.RawMessage(`"0x07"`))
	assert.Error(t, err)
}

func TestParseBlockNumber(t *testing.T) {
	for in, want := range map[string]uint64{"0x0": 0, "0x1a": 26, "0x00ff": 255, "0XFF": 255} {
		got, err := parseBlockNumber(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseBlockNumber("0x")
	assert.Error(t, err)
}

func TestFirstOf(t *testing.T) {
	n, err := firstOf[int](json.RawMessage(`[10, 12]`))
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = firstOf[int](json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Zero(t, n)

	s, err := firstOf[string](json.RawMessage(`"DOT"`))
	require.NoError(t, err)
	assert.Equal(t, "DOT", s)

	_, err = firstOf[int](json.RawMessage(`"twelve"`))
	assert.Error(t, err)
}
