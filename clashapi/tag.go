package clashapi

import "strings"

// Supercell tags only ever contain these characters.
const tagAlphabet = "0289CGJLPQRUVY"

// SanitizeTag normalizes user input into the canonical "#TAG" form: uppercase,
// trimmed, leading '#' optional, 'O' treated as the common typo for '0'.
// ok is false when the cleaned input contains characters a real tag cannot.
func SanitizeTag(input string) (string, bool) {
	tag := strings.ToUpper(strings.TrimSpace(input))
	tag = strings.TrimPrefix(tag, "#")
	tag = strings.ReplaceAll(tag, "O", "0")
	if tag == "" {
		return "", false
	}
	for _, r := range tag {
		if !strings.ContainsRune(tagAlphabet, r) {
			return "", false
		}
	}
	return "#" + tag, true
}

// EncodeTag returns the URL path form of a tag ('#' percent-encoded).
func EncodeTag(tag string) string {
	return "%23" + strings.ToUpper(strings.TrimPrefix(tag, "#"))
}
