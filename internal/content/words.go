package content

import (
	"strings"
	"unicode"
)

// WordsPerMinute is the reading speed used for reading time estimates
const WordsPerMinute = 200

// WordCount counts whitespace-separated tokens containing at least one letter or digit,
// so markdown markers such as "##", "-" and "|" are not counted.
func WordCount(text string) int {
	count := 0
	for _, field := range strings.Fields(text) {
		if hasWordRune(field) {
			count++
		}
	}
	return count
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// ReadingTime returns whole minutes to read the given number of words, at least one.
func ReadingTime(words int) int {
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}
