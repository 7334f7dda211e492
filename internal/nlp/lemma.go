package nlp

import "strings"

// Irregular noun plurals that suffix rules cannot reach.
var irregular = map[string]string{
	"men":      "man",
	"women":    "woman",
	"children": "child",
	"people":   "person",
	"feet":     "foot",
	"teeth":    "tooth",
	"mice":     "mouse",
	"geese":    "goose",
	"indices":  "index",
	"matrices": "matrix",
}

// Lemmatize reduces a token to its noun lemma. Without a
// part-of-speech hint only noun inflections are collapsed; verb forms
// pass through unchanged.
func Lemmatize(token string) string {
	if lemma, ok := irregular[token]; ok {
		return lemma
	}

	switch {
	case strings.HasSuffix(token, "ies") && len(token) > 4:
		return token[:len(token)-3] + "y"
	case strings.HasSuffix(token, "sses"):
		return token[:len(token)-2]
	case strings.HasSuffix(token, "xes"), strings.HasSuffix(token, "zes"),
		strings.HasSuffix(token, "ches"), strings.HasSuffix(token, "shes"):
		return token[:len(token)-2]
	case strings.HasSuffix(token, "ss"), strings.HasSuffix(token, "us"),
		strings.HasSuffix(token, "is"):
		return token
	case strings.HasSuffix(token, "s") && len(token) > 3:
		return token[:len(token)-1]
	}
	return token
}
