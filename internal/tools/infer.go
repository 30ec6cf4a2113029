package tools

import (
	"strings"
	"unicode"
)

// Scores used when inferring a tool from free text.
const (
	scoreExactName = 3
	scoreNameToken = 2
	scoreKeyword   = 1
)

var stopWords = map[string]bool{
	"about": true, "after": true, "their": true, "there": true, "these": true,
	"which": true, "while": true, "would": true, "should": true, "could": true,
	"other": true, "relevant": true, "various": true, "content": true,
}

// Infer picks the registered tool that best matches description. An exact
// name mention outranks a name token, which outranks a keyword or
// description overlap. Ties go to the earliest registered tool.
func (r *Registry) Infer(description string) (string, bool) {
	text := strings.ToLower(description)
	words := wordSet(text)

	best, bestScore := "", 0
	for _, d := range r.List() {
		if s := matchScore(d, text, words); s > bestScore {
			best, bestScore = d.Name, s
		}
	}
	return best, bestScore > 0
}

func matchScore(d Descriptor, text string, words map[string]bool) int {
	if strings.Contains(text, d.Name) {
		return scoreExactName
	}
	for _, tok := range strings.Split(d.Name, "_") {
		if len(tok) >= 3 && words[tok] {
			return scoreNameToken
		}
	}
	for _, kw := range d.Keywords {
		kw = strings.ToLower(kw)
		if words[kw] || (strings.ContainsAny(kw, " %") && strings.Contains(text, kw)) {
			return scoreKeyword
		}
	}
	for w := range wordSet(strings.ToLower(d.Description)) {
		if len(w) >= 5 && !stopWords[w] && words[w] {
			return scoreKeyword
		}
	}
	return 0
}

func wordSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) {
		out[w] = true
	}
	return out
}
