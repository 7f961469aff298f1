package proxy

import "strings"

// EstimateTokens approximates the token count of text by whitespace
// splitting. The backends expose no tokenizer; the estimate keeps usage
// fields populated for SDK clients.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}

// StripThinkTags removes <think> and </think> markers from completed
// output. Some backend models emit reasoning blocks wrapped in these
// tags; clients expect plain text. Only the markers are removed, the
// enclosed text stays. Streaming chunks pass through untouched since a
// tag can straddle a chunk boundary.
func StripThinkTags(text string) string {
	text = strings.ReplaceAll(text, "<think>", "")
	return strings.ReplaceAll(text, "</think>", "")
}
