package identifier

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUnique(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsZero())
}

func TestParseRoundTrip(t *testing.T) {
	id := New()
	parsed, err := Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not-a-uuid")
	assert.Error(t, err)
}

func TestNilIsZero(t *testing.T) {
	assert.True(t, Nil.IsZero())
}

func TestJSONRoundTrip(t *testing.T) {
	id := New()
	data, err := json.Marshal(id)
	require.NoError(t, err)

	var out ID
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, id, out)
}

func TestJSONEmptyString(t *testing.T) {
	var out ID
	require.NoError(t, json.Unmarshal([]byte(`""`), &out))
	assert.True(t, out.IsZero())
}
