package docmap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Profile struct {
	FirstName   string
	HomeAddress Address
	Tags        []string
}

func TestSerializerCamelCase(t *testing.T) {
	s := NewJSONSerializer(SerializerSettings{Casing: CasingCamel})
	data, err := s.Marshal(&Profile{FirstName: "Ann", HomeAddress: Address{City: "Oslo"}, Tags: []string{"x"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"firstName":"Ann","homeAddress":{"city":"Oslo","street":""},"tags":["x"]}`, string(data))

	var back Profile
	require.NoError(t, s.Unmarshal(data, &back))
	assert.Equal(t, "Ann", back.FirstName)
	assert.Equal(t, "Oslo", back.HomeAddress.City)
}

func TestSerializerSnakeCase(t *testing.T) {
	s := NewJSONSerializer(SerializerSettings{Casing: CasingSnake})
	data, err := s.Marshal(&Profile{FirstName: "Ann", HomeAddress: Address{City: "Oslo"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"first_name":"Ann","home_address":{"city":"Oslo","street":""},"tags":null}`, string(data))

	var back Profile
	require.NoError(t, s.Unmarshal(data, &back))
	assert.Equal(t, "Ann", back.FirstName)
	assert.Equal(t, "Oslo", back.HomeAddress.City)

	// dynamic documents keep their keys
	var doc DynamicDocument
	require.NoError(t, s.Unmarshal([]byte(`{"first_name":"Ann","n":1}`), &doc))
	assert.Equal(t, "Ann", doc["first_name"])
	assert.Equal(t, json.Number("1"), doc["n"])
}

func TestSerializerDefaults(t *testing.T) {
	s := NewJSONSerializer(SerializerSettings{})
	assert.Equal(t, SerializerSettings{Casing: CasingDefault, EnumStorage: EnumAsInteger}, s.Settings())
}

type Preferences struct {
	Owner    string
	Labels   map[string]string
	Nickname string `json:"nick_name"`
}

func TestSnakeCaseKeepsMapKeys(t *testing.T) {
	s := NewJSONSerializer(SerializerSettings{Casing: CasingSnake})
	in := &Preferences{
		Owner:    "a",
		Labels:   map[string]string{"FooBar": "1", "foo_bar": "2"},
		Nickname: "ann",
	}
	data, err := s.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":"a","labels":{"FooBar":"1","foo_bar":"2"},"nick_name":"ann"}`, string(data))

	var back Preferences
	require.NoError(t, s.Unmarshal(data, &back))
	assert.Equal(t, *in, back)
}
