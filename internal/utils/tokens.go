package utils

// charsPerToken approximates tokenizer output across the supported chat backends.
const charsPerToken = 4

// CountTokens estimates how many model tokens a prompt section will consume.
// Any non-empty text counts as at least one token.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / charsPerToken
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit cuts text so that CountTokens(result) <= limit.
// Rune boundaries are preserved.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * charsPerToken
	if charLimit >= len(runes) {
		return text
	}
	return string(runes[:charLimit])
}
