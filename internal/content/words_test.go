package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"## Heading here", 2},
		{"- item one\n- item two", 4},
		{"| a | b |", 2},
		{"Price: $49/month, billed yearly.", 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WordCount(tt.text), tt.text)
	}
}

func TestReadingTime(t *testing.T) {
	assert.Equal(t, 1, ReadingTime(0))
	assert.Equal(t, 1, ReadingTime(200))
	assert.Equal(t, 2, ReadingTime(201))
	assert.Equal(t, 8, ReadingTime(1600))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Best Invoicing Software (2026)", "best-invoicing-software-2026"},
		{"  Café & Crème Brûlée  ", "cafe-creme-brulee"},
		{"---", ""},
		{"Q&A: What's new?", "q-a-what-s-new"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}

func TestAnchor(t *testing.T) {
	assert.Equal(t, "why-invoicing-matters", Anchor("Why Invoicing Matters"))
	assert.Equal(t, "pricing-2026-update", Anchor("Pricing: 2026 Update!"))
}
