package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	for name, want := range map[string]Serializer{
		"":           JSONSerializer{},
		NameSonic:    JSONSerializer{},
		NameJSONIter: JSONIterSerializer{},
	} {
		got, err := ByName(name)
		require.NoError(t, err, name)
		assert.IsType(t, want, got, name)
	}

	_, err := ByName("gob")
	assert.Error(t, err)
}

func TestSerializersAgree(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
		Dat  []int  `json:"dat"`
	}
	in := payload{Name: "Message", Dat: []int{1, 2}}

	for _, s := range []Serializer{JSONSerializer{}, JSONIterSerializer{}} {
		data, err := s.Marshal(in)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"Message","dat":[1,2]}`, string(data))

		var out payload
		require.NoError(t, s.Unmarshal(data, &out))
		assert.Equal(t, in, out)
	}
}
