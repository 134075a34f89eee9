package textru

import (
	"strings"
	"unicode"
)

// Abbreviations that end with a period but do not terminate a sentence.
var abbreviations = map[string]struct{}{
	"т":    {},
	"д":    {},
	"п":    {},
	"др":   {},
	"пр":   {},
	"гг":   {},
	"г":    {},
	"ул":   {},
	"им":   {},
	"тыс":  {},
	"млн":  {},
	"руб":  {},
	"напр": {},
}

// SplitClauses splits text into sentence-level clauses, keeping the
// terminal punctuation with each clause. A period after a known
// abbreviation or a single letter does not end a clause.
func SplitClauses(text string) []string {
	var clauses []string
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if r == '.' && isAbbreviationDot(runes, i) {
			continue
		}

		// Swallow a run of terminal punctuation ("?!", "...").
		end := i
		for end+1 < len(runes) && isTerminal(runes[end+1]) {
			end++
		}

		clause := strings.TrimSpace(string(runes[start : end+1]))
		if clause != "" {
			clauses = append(clauses, clause)
		}
		i = end
		start = end + 1
	}

	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		clauses = append(clauses, rest)
	}
	return clauses
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isAbbreviationDot(runes []rune, dot int) bool {
	// Collect the word immediately before the dot.
	j := dot - 1
	for j >= 0 && unicode.IsLetter(runes[j]) {
		j--
	}
	word := strings.ToLower(string(runes[j+1 : dot]))
	if word == "" {
		return false
	}
	if len([]rune(word)) == 1 {
		// Single-letter initials: "и. иванов".
		return true
	}
	_, ok := abbreviations[word]
	return ok
}

// Tokenize splits text into word tokens, dropping punctuation.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

// EnsureTerminal appends a period when text lacks sentence-final punctuation.
func EnsureTerminal(text string) string {
	if text == "" {
		return text
	}
	if isTerminal([]rune(text)[len([]rune(text))-1]) {
		return text
	}
	return text + "."
}
