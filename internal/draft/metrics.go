package draft

import (
	"math"
	"strings"
	"unicode/utf8"
)

// WordsPerPage is the page estimate used for progress reporting.
const WordsPerPage = 250

// WordCount counts whitespace-delimited words. Empty text has zero words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// WordCountOf counts the words of a draft's content.
// A draft without content counts zero.
func WordCountOf(d Draft) int {
	return WordCount(d.Content)
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// EstimatePages converts a word count to pages, rounding up.
func EstimatePages(words int) int {
	if words <= 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / WordsPerPage))
}
