package naming

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// RemoveAccents folds accented characters to their base forms.
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Words splits s on punctuation, whitespace and case changes.
// "XMLHttp_request" yields ["XML", "Http", "request"].
func Words(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = RemoveAccents(s)
	var out []string
	for _, part := range nonAlnum.Split(s, -1) {
		if part == "" {
			continue
		}
		out = append(out, splitCamelCase(part)...)
	}
	return out
}

func splitCamelCase(s string) []string {
	var parts []string
	var current strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		newWord := false
		if i > 0 && isUpper(r) {
			if !isUpper(rs[i-1]) {
				newWord = true
			} else if i < len(rs)-1 && isLower(rs[i+1]) {
				// "XMLHttp" -> "XML", "Http"
				newWord = true
			}
		}
		if newWord && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

// PascalCase joins the words of s, capitalizing the first letter of each.
// The rest of every word keeps its case, so "PetDTO" stays "PetDTO".
func PascalCase(s string) string {
	var b strings.Builder
	for _, w := range Words(s) {
		b.WriteString(UpperFirst(w))
	}
	return b.String()
}

// CamelCase is PascalCase with the first word lowercased.
func CamelCase(s string) string {
	words := Words(s)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		b.WriteString(UpperFirst(w))
	}
	return b.String()
}

// UpperFirst capitalizes the first ASCII letter of s.
func UpperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// PascalJoin PascalCases every part and concatenates them.
func PascalJoin(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(PascalCase(p))
	}
	return b.String()
}

// OperationID synthesizes an identifier from a method and a path template:
// ("get", "/pets/{petId}") yields "getPetsPetId".
func OperationID(method, path string) string {
	return CamelCase(method + " " + path)
}
