package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONFencedBlock(t *testing.T) {
	text := "Here is my analysis:\n```json\n{\"score\": 85, \"status\": \"needs_review\"}\n```\nLet me know if you need more."

	obj, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.Equal(t, float64(85), obj["score"])
	assert.Equal(t, "needs_review", obj["status"])
}

func TestExtractJSONFencedBlockUppercaseLabel(t *testing.T) {
	text := "```JSON\n{\"score\": 40}\n```"

	obj, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.Equal(t, float64(40), obj["score"])
}

func TestExtractJSONBraceHeuristic(t *testing.T) {
	text := "The display looks mostly correct. {\"score\": 90, \"issues\": []} That is my conclusion."

	obj, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.Equal(t, float64(90), obj["score"])
}

func TestExtractJSONWholeText(t *testing.T) {
	obj, ok := ExtractJSON(`  {"score": 100}  `)
	require.True(t, ok)
	assert.Equal(t, float64(100), obj["score"])
}

func TestExtractJSONBrokenFenceFallsThroughToBraces(t *testing.T) {
	// The fenced block holds an array, not an object, but the surrounding
	// text still contains a complete object.
	text := "```json\n[1, 2]\n```\nresult: {\"score\": 55}"

	obj, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.Equal(t, float64(55), obj["score"])
}

func TestExtractJSONNoJSON(t *testing.T) {
	for _, text := range []string{
		"I cannot compare these images.",
		"",
		"[1, 2, 3]", // an array is not an object
		"{broken",
	} {
		obj, ok := ExtractJSON(text)
		assert.False(t, ok, "input %q", text)
		assert.Nil(t, obj)
	}
}
