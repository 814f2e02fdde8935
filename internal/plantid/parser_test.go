package plantid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentStrictJSON(t *testing.T) {
	raw, path := ParseContent(`{"plantName": "Aloe Vera", "confidence": 92}`)

	assert.Equal(t, ParsePathStrict, path)
	require.NotNil(t, raw)
	assert.Equal(t, "Aloe Vera", raw["plantName"])
}

func TestParseContentEmbeddedJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"prose_prefix", `Sure! Here is the identification: {"plantName": "Aloe Vera", "confidence": 92}`},
		{"markdown_fence", "```json\n{\"plantName\": \"Aloe Vera\", \"confidence\": 92}\n```"},
		{"prose_both_sides", `I found it: {"plantName": "Aloe Vera"} Hope this helps!`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, path := ParseContent(tt.content)

			assert.Equal(t, ParsePathEmbedded, path)
			require.NotNil(t, raw)
			assert.Equal(t, "Aloe Vera", raw["plantName"])
		})
	}
}

func TestParseContentKeywordScrape(t *testing.T) {
	content := `This looks like a common houseplant.

Plant Name: Snake Plant
Scientific Name: Dracaena trifasciata
Family: Asparagaceae
Confidence: 78
Light: Tolerates low light
Water: Let the soil dry out fully
Toxicity: Mildly toxic to pets`

	raw, path := ParseContent(content)

	assert.Equal(t, ParsePathRegex, path)
	require.NotNil(t, raw)
	assert.Equal(t, "Snake Plant", raw["plantName"])
	assert.Equal(t, "Dracaena trifasciata", raw["scientificName"])
	assert.Equal(t, "Asparagaceae", raw["family"])
	assert.Equal(t, "78", raw["confidence"])

	care, ok := raw["careInstructions"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Tolerates low light", care["light"])
	assert.Equal(t, "Let the soil dry out fully", care["water"])

	ch, ok := raw["characteristics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Mildly toxic to pets", ch["toxicity"])
}

func TestParseContentFallback(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t  "},
		{"no_structure", "I am not sure what this plant is, sorry."},
		{"broken_braces", "here } is { nothing useful"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, path := ParseContent(tt.content)

			assert.Equal(t, ParsePathFallback, path)
			assert.Nil(t, raw)
		})
	}
}

func TestParseContentFallbackNormalizesToDefault(t *testing.T) {
	raw, _ := ParseContent("no idea")

	assert.Equal(t, DefaultRecord(), Normalize(raw))
}
