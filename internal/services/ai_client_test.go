package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersonaDraftPlainJSON(t *testing.T) {
	draft, err := ParsePersonaDraft(`{"name":"Luna","personality":"warm and playful","likes":"stargazing"}`)
	require.NoError(t, err)
	assert.Equal(t, "Luna", draft.Name)
	assert.Equal(t, "warm and playful", draft.Personality)
	assert.Equal(t, "stargazing", draft.Likes)
}

func TestParsePersonaDraftCodeFenced(t *testing.T) {
	raw := "```json\n{\"name\":\"Kai\",\"backstory\":\"grew up by the sea\"}\n```"
	draft, err := ParsePersonaDraft(raw)
	require.NoError(t, err)
	assert.Equal(t, "Kai", draft.Name)
	assert.Equal(t, "grew up by the sea", draft.Backstory)
}

func TestParsePersonaDraftBareFence(t *testing.T) {
	raw := "```\n{\"name\":\"Mira\"}\n```"
	draft, err := ParsePersonaDraft(raw)
	require.NoError(t, err)
	assert.Equal(t, "Mira", draft.Name)
}

func TestParsePersonaDraftMissingName(t *testing.T) {
	_, err := ParsePersonaDraft(`{"personality":"mysterious"}`)
	assert.Error(t, err)
}

func TestParsePersonaDraftGarbage(t *testing.T) {
	_, err := ParsePersonaDraft("Sure! Here is your persona: Luna the explorer")
	assert.Error(t, err)
}
