package chat

import "regexp"

var (
	scriptPattern  = regexp.MustCompile(`(?is)<\s*script\b[^>]*>.*?<\s*/\s*script\s*>`)
	iframePattern  = regexp.MustCompile(`(?is)<\s*iframe\b[^>]*>.*?<\s*/\s*iframe\s*>`)
	handlerPattern = regexp.MustCompile(`(?i)\son\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	jsURLPattern   = regexp.MustCompile(`(?i)javascript\s*:`)
)

// StripExecutableMarkup removes script-bearing HTML from model output before
// it is persisted or returned. Text content is otherwise left untouched.
func StripExecutableMarkup(input string) (clean string, changed bool) {
	out := input

	next := scriptPattern.ReplaceAllString(out, "")
	changed = changed || next != out
	out = next

	next = iframePattern.ReplaceAllString(out, "")
	changed = changed || next != out
	out = next

	next = handlerPattern.ReplaceAllString(out, "")
	changed = changed || next != out
	out = next

	next = jsURLPattern.ReplaceAllString(out, "")
	changed = changed || next != out
	out = next

	return out, changed
}
