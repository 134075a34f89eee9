package textru

import (
	"strings"
	"unicode"
)

// Pronoun tables for grammatical-person detection and rewriting.
// Case and possessive variants are mapped pairwise so the same table
// serves both directions of FlipPerson.
var firstToSecond = map[string]string{
	"я":     "ты",
	"меня":  "тебя",
	"мне":   "тебе",
	"мной":  "тобой",
	"мною":  "тобою",
	"мой":   "твой",
	"моя":   "твоя",
	"мое":   "твое",
	"моё":   "твоё",
	"мои":   "твои",
	"моего": "твоего",
	"моей":  "твоей",
	"моему": "твоему",
	"моих":  "твоих",
	"моим":  "твоим",
}

var secondToFirst = invert(firstToSecond)

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// Verb ending rewrites, 2nd person singular <-> 1st person singular.
// Longest suffix wins; this is a heuristic stand-in for full morphology.
var secondToFirstEndings = [][2]string{
	{"ешься", "юсь"},
	{"ишься", "юсь"},
	{"аешь", "аю"},
	{"яешь", "яю"},
	{"уешь", "ую"},
	{"юешь", "юю"},
	{"бишь", "блю"},
	{"вишь", "влю"},
	{"мишь", "млю"},
	{"пишь", "плю"},
	{"ишь", "ю"},
	{"ешь", "ю"},
}

var firstToSecondEndings = [][2]string{
	{"аюсь", "аешься"},
	{"яюсь", "яешься"},
	{"аю", "аешь"},
	{"яю", "яешь"},
	{"ую", "уешь"},
	{"юю", "юешь"},
	{"блю", "бишь"},
	{"влю", "вишь"},
	{"плю", "пишь"},
}

// NormalizePerson rewrites a second-person utterance into first person,
// so "ты любишь кофе?" becomes "я люблю кофе?" and matches stored facts.
func NormalizePerson(text string) string {
	return rewriteWords(text, secondToFirst, secondToFirstEndings)
}

// FlipPerson swaps first and second person, used when a fact said by the
// interlocutor about themselves is stored from the bot's point of view.
func FlipPerson(text string) string {
	merged := make(map[string]string, len(firstToSecond)+len(secondToFirst))
	for k, v := range firstToSecond {
		merged[k] = v
	}
	for k, v := range secondToFirst {
		merged[k] = v
	}
	endings := append(append([][2]string{}, firstToSecondEndings...), secondToFirstEndings...)
	return rewriteWords(text, merged, endings)
}

func rewriteWords(text string, words map[string]string, endings [][2]string) string {
	var b strings.Builder
	var word []rune

	flush := func() {
		if len(word) == 0 {
			return
		}
		b.WriteString(rewriteWord(string(word), words, endings))
		word = word[:0]
	}

	for _, r := range text {
		if unicode.IsLetter(r) || r == '-' {
			word = append(word, r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}

func rewriteWord(w string, words map[string]string, endings [][2]string) string {
	lower := strings.ToLower(w)
	if repl, ok := words[lower]; ok {
		if isTitle(w) {
			return title(repl)
		}
		return repl
	}
	for _, e := range endings {
		if strings.HasSuffix(lower, e[0]) && len([]rune(lower)) > len([]rune(e[0])) {
			stem := string([]rune(lower)[:len([]rune(lower))-len([]rune(e[0]))])
			repl := stem + e[1]
			if isTitle(w) {
				return title(repl)
			}
			return repl
		}
	}
	return w
}

func isTitle(w string) bool {
	r := []rune(w)
	return len(r) > 0 && unicode.IsUpper(r[0])
}

func title(w string) string {
	r := []rune(w)
	if len(r) == 0 {
		return w
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
