package textru

import "strings"

// Kind is the pragmatic class of an utterance.
type Kind string

const (
	Statement  Kind = "statement"
	Question   Kind = "question"
	Imperative Kind = "imperative"
)

var secondPersonWords = map[string]struct{}{
	"ты": {}, "тебя": {}, "тебе": {}, "тобой": {}, "тобою": {},
	"твой": {}, "твоя": {}, "твое": {}, "твоё": {}, "твои": {},
	"твоего": {}, "твоей": {}, "твоему": {}, "твоих": {}, "твоим": {},
	"вы": {}, "вас": {}, "вам": {}, "вами": {},
	"ваш": {}, "ваша": {}, "ваше": {}, "ваши": {},
}

var firstPersonWords = map[string]struct{}{
	"я": {}, "меня": {}, "мне": {}, "мной": {}, "мною": {},
	"мой": {}, "моя": {}, "мое": {}, "моё": {}, "мои": {},
	"мы": {}, "нас": {}, "нам": {}, "нами": {},
	"наш": {}, "наша": {}, "наше": {}, "наши": {},
}

// Modality classifies an utterance by kind and grammatical person.
// Person is 1, 2 or 0 when no personal marker is present.
// This is a rule-based stand-in for a trained classifier: a question is
// recognized by its terminal question mark, person by pronoun lookup
// and second-person verb endings.
func Modality(text string) (Kind, int, []string) {
	tokens := Tokenize(text)
	trimmed := strings.TrimSpace(text)

	kind := Statement
	if strings.HasSuffix(trimmed, "?") {
		kind = Question
	}

	person := 0
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		if _, ok := secondPersonWords[lower]; ok {
			person = 2
			break
		}
		if _, ok := firstPersonWords[lower]; ok {
			person = 1
		}
	}
	if person == 0 {
		for _, tok := range tokens {
			lower := strings.ToLower(tok)
			if strings.HasSuffix(lower, "ешь") || strings.HasSuffix(lower, "ишь") ||
				strings.HasSuffix(lower, "ешься") || strings.HasSuffix(lower, "ишься") {
				person = 2
				break
			}
		}
	}

	return kind, person, tokens
}

// ContainsSecondPerson reports whether any token is a second-person pronoun.
func ContainsSecondPerson(text string) bool {
	for _, tok := range Tokenize(text) {
		if strings.ToLower(tok) == "ты" {
			return true
		}
	}
	return false
}

var negationWords = map[string]struct{}{
	"нет": {},
	"не":  {},
}

// ContainsNegation reports whether text carries a negation marker.
func ContainsNegation(text string) bool {
	for _, tok := range Tokenize(text) {
		if _, ok := negationWords[strings.ToLower(tok)]; ok {
			return true
		}
	}
	return false
}
