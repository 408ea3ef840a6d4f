package scraper

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var stopWords = map[string]bool{
	"a": true, "about": true, "an": true, "and": true, "any": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "can": true, "could": true, "describe": true, "do": true,
	"does": true, "explain": true, "for": true, "from": true, "give": true, "how": true, "i": true,
	"in": true, "is": true, "it": true, "its": true, "me": true, "my": true, "of": true, "on": true,
	"or": true, "please": true, "should": true, "tell": true, "that": true, "the": true,
	"there": true, "this": true, "to": true, "us": true, "was": true, "what": true, "when": true,
	"where": true, "which": true, "who": true, "why": true, "will": true, "with": true,
	"would": true, "you": true, "your": true,
}

// Keywords returns the distinct lowercase terms of query worth matching on:
// at least three letters and not a stop word, in order of appearance.
func Keywords(query string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range tokenize(query) {
		lower := strings.ToLower(tok)
		if stopWords[lower] || utf8.RuneCountInString(lower) < 3 || seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, lower)
	}
	return out
}

// SubjectTerms strips question words and stop words from question, keeping
// the remaining tokens in their original case. "What is Schedule H?" yields
// "Schedule H".
func SubjectTerms(question string) string {
	var out []string
	for _, tok := range tokenize(question) {
		if stopWords[strings.ToLower(tok)] {
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}
