package interview

import "strings"

// stopwords are dropped before computing question overlap so function words
// do not inflate similarity between unrelated questions.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "can": true, "do": true,
	"does": true, "for": true, "how": true, "in": true, "is": true, "it": true,
	"of": true, "on": true, "or": true, "the": true, "this": true, "to": true,
	"what": true, "which": true, "with": true, "you": true, "your": true,
}

// tokenize lowercases a question and splits it into keyword tokens.
func tokenize(question string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return ' '
	}, strings.ToLower(question))

	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if !stopwords[tok] {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// similarity computes the keyword overlap ratio between two token sets
// (intersection over union). Empty inputs have zero similarity.
func similarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(a))
	for _, tok := range a {
		setA[tok] = true
	}
	setB := make(map[string]bool, len(b))
	for _, tok := range b {
		setB[tok] = true
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// roundOverlapsRecent reports whether any candidate question overlaps any
// question from the recent rounds above the threshold.
func roundOverlapsRecent(candidates []string, recent [][]string, threshold float64) bool {
	for _, candidate := range candidates {
		candidateTokens := tokenize(candidate)
		for _, round := range recent {
			for _, previous := range round {
				if similarity(candidateTokens, tokenize(previous)) >= threshold {
					return true
				}
			}
		}
	}
	return false
}

// normalizeQuestion canonicalizes a question for exact-duplicate comparison.
func normalizeQuestion(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(question))), " ")
}
