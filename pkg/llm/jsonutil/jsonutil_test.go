package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	assert.Equal(t, `{"a":1}`, Clean("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, Clean("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, Clean(`  {"a":1}  `))
}

func TestExtractObject(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		got, err := ExtractObject(`{"tags":["sleep"]}`)
		require.NoError(t, err)
		assert.Equal(t, `{"tags":["sleep"]}`, got)
	})

	t.Run("commentary around object", func(t *testing.T) {
		got, err := ExtractObject("Sure, here you go:\n{\"tags\":[]}\nHope that helps!")
		require.NoError(t, err)
		assert.Equal(t, `{"tags":[]}`, got)
	})

	t.Run("fenced object", func(t *testing.T) {
		got, err := ExtractObject("```json\n{\"schema_changed\": false}\n```")
		require.NoError(t, err)
		assert.Equal(t, `{"schema_changed": false}`, got)
	})

	t.Run("no object", func(t *testing.T) {
		_, err := ExtractObject("I cannot answer that.")
		assert.Error(t, err)
	})
}

func TestUnmarshalObject(t *testing.T) {
	var out struct {
		Tags []string `json:"tags"`
	}
	err := UnmarshalObject("```json\n{\"tags\":[\"meal\",\"workout\"]}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"meal", "workout"}, out.Tags)

	err = UnmarshalObject(`{"tags": "not-an-array"}`, &out)
	assert.Error(t, err)
}
