package models

import "strings"

// ContentLength is the requested article size class.
type ContentLength string

const (
	ContentLengthShort  ContentLength = "SHORT"
	ContentLengthMedium ContentLength = "MEDIUM"
	ContentLengthLong   ContentLength = "LONG"
	ContentLengthPillar ContentLength = "PILLAR"
)

// LengthSpec holds the word targets for a content length class.
type LengthSpec struct {
	MinWords     int // Lower bound of the target range
	MaxWords     int // Upper bound of the target range
	MinAccepted  int // Drafts below this trigger the sectioned fallback
	MaxTokens    int // Output token budget for single-shot drafting
	IntroWords   int // Budget for the intro block in sectioned drafting
	SectionFloor int // Lowest per-section budget in sectioned drafting
}

var lengthSpecs = map[ContentLength]LengthSpec{
	ContentLengthShort:  {MinWords: 800, MaxWords: 1200, MinAccepted: 700, MaxTokens: 3000, IntroWords: 150, SectionFloor: 120},
	ContentLengthMedium: {MinWords: 1500, MaxWords: 2000, MinAccepted: 1200, MaxTokens: 5000, IntroWords: 200, SectionFloor: 150},
	ContentLengthLong:   {MinWords: 2500, MaxWords: 3500, MinAccepted: 2000, MaxTokens: 8500, IntroWords: 250, SectionFloor: 200},
	ContentLengthPillar: {MinWords: 4000, MaxWords: 5000, MinAccepted: 3200, MaxTokens: 12000, IntroWords: 300, SectionFloor: 250},
}

// Spec returns the word targets, defaulting unknown classes to MEDIUM.
func (c ContentLength) Spec() LengthSpec {
	if spec, ok := lengthSpecs[c]; ok {
		return spec
	}
	return lengthSpecs[ContentLengthMedium]
}

// IsValid reports whether c names a known class.
func (c ContentLength) IsValid() bool {
	_, ok := lengthSpecs[c]
	return ok
}

// ParseContentLength maps loose input ("long", "Pillar ") onto a class.
func ParseContentLength(s string) (ContentLength, bool) {
	c := ContentLength(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.IsValid()
}
