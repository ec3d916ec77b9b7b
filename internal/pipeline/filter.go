package pipeline

import "strings"

// questionKeywords mark a message as support-relevant even without a
// question mark.
var questionKeywords = []string{
	"how", "what", "why", "when", "where",
	"issue", "bug", "error", "help", "support",
	"price", "fees",
}

// chatterWords are social noise the bot stays out of.
var chatterWords = []string{
	"lol", "haha", "thanks", "thank you", "gg", "nice", "cool",
}

// ShouldAnswer decides whether a message in the target channel deserves a
// generated answer. The checks run in a fixed order: too short loses,
// a question mark wins, a keyword wins, pure chatter loses, and anything
// left is treated as a question. Erring toward answering beats ignoring
// a customer.
func ShouldAnswer(text string, minLength int) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minLength {
		return false
	}

	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "?") {
		return true
	}
	for _, kw := range questionKeywords {
		if containsWord(lower, kw) {
			return true
		}
	}
	for _, w := range chatterWords {
		if strings.Contains(lower, w) {
			return false
		}
	}
	return true
}

// containsWord reports whether s contains w as a whole word, so "show"
// does not trigger the "how" keyword.
func containsWord(s, w string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], w)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(w)
		beforeOK := start == 0 || !isWordChar(s[start-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
