package app

import "strings"

// NormalizeAnswer canonicalises an answer or option for comparison.
func NormalizeAnswer(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Evaluate reports whether answer matches the correct option, ignoring case
// and surrounding whitespace on both sides.
func Evaluate(answer, correctOption string) bool {
	return NormalizeAnswer(answer) == NormalizeAnswer(correctOption)
}
