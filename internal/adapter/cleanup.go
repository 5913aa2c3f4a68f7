package adapter

import (
	"regexp"
	"strings"
)

// chatPreambles covers the commentary instruction-tuned models tend to put in
// front of a translation. Order matters: only the first match is removed.
var chatPreambles = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:sure|certainly|of course)[!,.]?\s+(?:here is|here's) (?:the|your) translation[^:\n]*:\s*`),
	regexp.MustCompile(`(?i)^(?:here is|here's) (?:the|your) translation[^:\n]*:\s*`),
	regexp.MustCompile(`(?i)^the following is[^:\n]*:\s*`),
	regexp.MustCompile(`(?i)^translation(?: result)?\s*[:：]\s*`),
	regexp.MustCompile(`(?i)^translated text\s*[:：]\s*`),
	regexp.MustCompile(`^翻訳(?:結果|文)?\s*[:：]\s*`),
	regexp.MustCompile(`^以下(?:は|が)[^:：\n]*[:：]\s*`),
}

// stripTokens removes every token until none remain, so removal cannot splice
// a new token together from the pieces around an old one.
func stripTokens(text string, tokens []string, scrub func(string) string) string {
	for {
		before := text
		for _, token := range tokens {
			if token != "" {
				text = strings.ReplaceAll(text, token, "")
			}
		}
		if scrub != nil {
			text = scrub(text)
		}
		if text == before {
			return text
		}
	}
}

func stripPreamble(text string, patterns []*regexp.Regexp) string {
	for _, pattern := range patterns {
		loc := pattern.FindStringIndex(text)
		if loc == nil || loc[0] != 0 {
			continue
		}
		return text[loc[1]:]
	}
	return text
}
