package content

import (
	"strings"
	"unicode"
)

// SplitLongParagraphs splits prose paragraphs above ceiling words at the sentence
// boundary nearest their midpoint, repeating until every part fits or has no boundary.
// Headings, lists, quotes, tables, images, HTML and code blocks are never split.
func SplitLongParagraphs(markdown string, ceiling int) (string, int) {
	if ceiling <= 0 {
		ceiling = DefaultThresholds().ParagraphWordCeiling
	}

	blocks := strings.Split(markdown, "\n\n")
	inFence := false
	splits := 0

	for i, block := range blocks {
		fences := strings.Count(block, "```")
		if inFence || fences > 0 {
			if fences%2 == 1 {
				inFence = !inFence
			}
			continue
		}
		if isStructuralBlock(block) || WordCount(block) <= ceiling {
			continue
		}

		parts := splitParagraph(strings.TrimSpace(block), ceiling)
		if len(parts) > 1 {
			splits += len(parts) - 1
			blocks[i] = strings.Join(parts, "\n\n")
		}
	}

	return strings.Join(blocks, "\n\n"), splits
}

func isStructuralBlock(block string) bool {
	first := strings.TrimSpace(block)
	if first == "" {
		return true
	}
	if idx := strings.IndexByte(first, '\n'); idx >= 0 {
		first = strings.TrimSpace(first[:idx])
	}
	switch first[0] {
	case '#', '>', '|', '!', '<':
		return true
	}
	// a leading * only marks a list item when whitespace follows; **Bold** opens prose
	return listItemPattern.MatchString(first)
}

func splitParagraph(p string, ceiling int) []string {
	if WordCount(p) <= ceiling {
		return []string{p}
	}
	pos := nearestSentenceBoundary(p)
	if pos <= 0 || pos >= len(p) {
		return []string{p}
	}

	left := strings.TrimSpace(p[:pos])
	right := strings.TrimSpace(p[pos:])
	if left == "" || right == "" {
		return []string{p}
	}
	return append(splitParagraph(left, ceiling), splitParagraph(right, ceiling)...)
}

// nearestSentenceBoundary returns the byte offset just after the sentence end closest
// to the middle of p, or -1. A sentence ends at . ! or ? followed by whitespace and an
// uppercase letter, digit, quote or markdown emphasis.
func nearestSentenceBoundary(p string) int {
	mid := len(p) / 2
	best := -1
	bestDist := len(p) + 1

	for i := 0; i < len(p)-2; i++ {
		c := p[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if !unicode.IsSpace(rune(p[i+1])) {
			continue
		}
		j := i + 1
		for j < len(p) && unicode.IsSpace(rune(p[j])) {
			j++
		}
		if j >= len(p) || !startsSentence(p[j:]) {
			continue
		}

		pos := i + 1
		dist := pos - mid
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best, bestDist = pos, dist
		}
	}
	return best
}

func startsSentence(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r) || unicode.IsDigit(r) || strings.ContainsRune("\"'*_[(", r)
	}
	return false
}
