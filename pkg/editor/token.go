package editor

import (
	"regexp"
	"strings"
)

var referencePattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Token renders the inline reference for a variable label.
func Token(label string) string {
	return "{{" + label + "}}"
}

// References lists the distinct variable labels referenced in text, in order
// of first appearance.
func References(text string) []string {
	var labels []string
	seen := make(map[string]bool)
	for _, m := range referencePattern.FindAllStringSubmatch(text, -1) {
		label := m[1]
		if seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}

// Render replaces references with their values. Unknown references are kept.
func Render(text string, values map[string]string) string {
	return referencePattern.ReplaceAllStringFunc(text, func(tok string) string {
		label := strings.TrimSpace(tok[2 : len(tok)-2])
		if v, ok := values[label]; ok {
			return v
		}
		return tok
	})
}
