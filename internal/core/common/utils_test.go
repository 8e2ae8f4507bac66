package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clipPayload struct {
	Clips []struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"clips"`
}

func TestParseJSON_BareObject(t *testing.T) {
	out, err := ParseJSON[clipPayload](`{"clips": [{"title": "A", "text": "body"}]}`)
	require.NoError(t, err)
	require.Len(t, out.Clips, 1)
	assert.Equal(t, "A", out.Clips[0].Title)
}

func TestParseJSON_MarkdownFences(t *testing.T) {
	response := "Sure, here's the result:\n```json\n{\"clips\": [{\"title\": \"A\", \"text\": \"b\"}]}\n```\nLet me know!"
	out, err := ParseJSON[clipPayload](response)
	require.NoError(t, err)
	assert.Len(t, out.Clips, 1)
}

func TestParseJSON_Failures(t *testing.T) {
	_, err := ParseJSON[clipPayload]("no json here")
	assert.Error(t, err)

	_, err = ParseJSON[clipPayload]("{ truncated")
	assert.Error(t, err)

	_, err = ParseJSON[clipPayload](`{"clips": "not an array"}`)
	assert.Error(t, err)
}
