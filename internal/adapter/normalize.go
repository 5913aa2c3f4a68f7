package adapter

import (
	"regexp"
	"strings"
)

var (
	blankRun     = regexp.MustCompile(`\n{3,}`)
	lineBreakRun = regexp.MustCompile(`\n+`)
)

// NormalizeInput unifies line endings to \n and collapses runs of three or
// more newlines to exactly two. Shorter runs are kept as paragraph breaks.
func NormalizeInput(text string) string {
	text = unifyLineEndings(text)
	return blankRun.ReplaceAllString(text, "\n\n")
}

// FlattenLines replaces every run of newlines with one space, for models that
// stop at the first blank line. Other whitespace is left alone.
func FlattenLines(text string) string {
	text = unifyLineEndings(text)
	return lineBreakRun.ReplaceAllString(text, " ")
}

func unifyLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
