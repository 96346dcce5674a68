package textutil

import (
	"regexp"
	"strings"
)

// FilteredMarker replaces every neutralized injection span.
const FilteredMarker = "[FILTERED]"

// injectionPatterns lists instruction-override phrases and chat control
// tokens. None of them can match FilteredMarker. The chat-token pattern runs
// last because a marker left inside `<|...|>` can complete a new token.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:ignore|override)\s+(?:all\s+)?(?:the\s+|any\s+)?(?:previous|prior|above|earlier|preceding)\s+(?:instructions?|prompts?|rules?|directions?)`),
	regexp.MustCompile(`(?i)\bdisregard\s+(?:all\s+)?(?:the\s+|any\s+)?(?:previous|prior|above|earlier|preceding)\b`),
	regexp.MustCompile(`(?i)\bforget\s+(?:all\s+|everything\s+)?(?:the\s+|about\s+)?(?:previous|prior|above|earlier|preceding)\b`),
	regexp.MustCompile(`(?i)#{2,}\s*system\s+(?:instructions?|prompt|message)`),
	regexp.MustCompile(`(?i)\bsystem\s*:`),
	regexp.MustCompile(`(?i)\[/?INST\]`),
	regexp.MustCompile(`(?i)<</?SYS>>`),
	regexp.MustCompile(`<\|[^|<>\n]{0,40}\|>`),
}

// SanitizePromptInput neutralizes known prompt-injection patterns in
// untrusted text before it is embedded in a model request. Text without any
// match is returned unchanged; sanitized text sanitizes to itself.
func SanitizePromptInput(text string) string {
	out, _ := neutralize(text)
	return out
}

// InjectionMatches counts the spans SanitizePromptInput would neutralize.
func InjectionMatches(text string) int {
	_, count := neutralize(text)
	return count
}

// neutralize applies every pattern until a pass finds nothing. A marker can
// complete a new match at its edges (nested chat tokens collapse one level
// per pass), but every match consumes input characters no marker supplies,
// so the loop ends.
func neutralize(text string) (string, int) {
	if strings.TrimSpace(text) == "" {
		return text, 0
	}
	out := text
	total := 0
	for {
		found := 0
		for _, pattern := range injectionPatterns {
			matches := len(pattern.FindAllStringIndex(out, -1))
			if matches == 0 {
				continue
			}
			found += matches
			out = pattern.ReplaceAllLiteralString(out, FilteredMarker)
		}
		if found == 0 {
			return out, total
		}
		total += found
	}
}
