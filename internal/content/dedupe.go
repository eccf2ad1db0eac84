package content

import (
	"strings"
	"unicode/utf8"
)

// Deduplicator truncates text that repeats itself, the signature of a model
// stuck in a generation loop.
type Deduplicator struct {
	thresholds Thresholds
}

// NewDeduplicator creates a Deduplicator; zero thresholds use defaults.
func NewDeduplicator(thresholds Thresholds) *Deduplicator {
	return &Deduplicator{thresholds: thresholds.withDefaults()}
}

// RemoveRepetition applies the default Deduplicator.
func RemoveRepetition(text string) string {
	return NewDeduplicator(Thresholds{}).Apply(text)
}

// Apply probes decreasing prefix windows of text for a second occurrence after the
// window. When one starts inside the cutoff fraction of the text, everything from it
// onwards is dropped. Text without such a repeat is returned unchanged.
func (d *Deduplicator) Apply(text string) string {
	t := d.thresholds
	length := len(text)
	if length < 2*t.DedupMinWindow {
		return text
	}

	cutoff := int(float64(length) * t.DedupCutoffRatio)

	window := int(float64(length) * t.DedupWindowRatio)
	if window < t.DedupMinWindow {
		window = t.DedupMinWindow
	}
	if window > length/2 {
		window = length / 2
	}

	for ; window >= t.DedupMinWindow; window -= t.DedupStep {
		end := runeBoundary(text, window)
		prefix := text[:end]
		if strings.TrimSpace(prefix) == "" {
			continue
		}

		idx := strings.Index(text[end:], prefix)
		if idx < 0 {
			continue
		}

		start := end + idx
		if start <= cutoff {
			return strings.TrimRight(text[:start], " \t\r\n")
		}
	}

	return text
}

// runeBoundary moves i back to the start of the rune containing it
func runeBoundary(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
