package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribe/internal/models"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n[1,2]\n```", `[1,2]`},
		{"inline fence", "```{\"a\":1}```", `{"a":1}`},
		{"surrounding space", "  \n```JSON\n{}\n```\n ", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}
	require.NoError(t, DecodeJSON("```json\n{\"title\":\"Hi\",\"tags\":[\"a\"]}\n```", &out))
	assert.Equal(t, "Hi", out.Title)
	assert.Equal(t, []string{"a"}, out.Tags)

	err := DecodeJSON("not json", &out)
	assert.ErrorIs(t, err, models.ErrMalformedJSON)

	err = DecodeJSON("   ", &out)
	assert.ErrorIs(t, err, models.ErrMalformedJSON)
}
