package adapter

import (
	"regexp"
	"strings"
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// qwenSpec targets small Qwen3 instruct models. /no_think turns off the
// reasoning trace, but an empty <think></think> pair is still emitted.
func qwenSpec() Spec {
	return Spec{
		Template: layout("<|im_start|>system\n" +
			"You are a translation engine. Translate the user's text from {source} to {target} " +
			"and output only the translation. /no_think<|im_end|>\n" +
			"<|im_start|>user\n" +
			"{text}<|im_end|>\n" +
			"<|im_start|>assistant\n"),
		Stops:     []string{"<|im_end|>", "<|endoftext|>"},
		Preambles: chatPreambles,
		Scrub:     scrubThink,
	}
}

func scrubThink(text string) string {
	text = thinkBlock.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "<think>", "")
	return strings.ReplaceAll(text, "</think>", "")
}
