package interview

import "strings"

// frustrationPhrases is the lexical signal set for user frustration: direct
// frustration, repetition complaints, dismissive responses, and sarcasm.
// Matching is case-insensitive substring matching against answer text.
var frustrationPhrases = []string{
	// Direct frustration.
	"this is frustrating",
	"frustrated",
	"annoying",
	"stop asking",
	"enough questions",
	"too many questions",
	"get on with it",

	// Repetition complaints.
	"already answered",
	"already told you",
	"i just said",
	"asked me this",
	"same question",
	"you keep asking",
	"again?",

	// Dismissive responses.
	"whatever",
	"who cares",
	"doesn't matter",
	"just classify it",
	"does it matter",

	// Sarcasm.
	"oh great, more questions",
	"wonderful, another question",
	"sure, why not ask again",
}

// detectFrustration reports whether any answer in the batch reads as
// frustrated. One round counts as at most one frustration occurrence.
func detectFrustration(answers []string) bool {
	for _, answer := range answers {
		lower := strings.ToLower(answer)
		for _, phrase := range frustrationPhrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
	}
	return false
}

// unknownMarkers are the answers that carry no information.
var unknownMarkers = map[string]bool{
	"":              true,
	"i don't know":  true,
	"i dont know":   true,
	"don't know":    true,
	"dont know":     true,
	"idk":           true,
	"dunno":         true,
	"no idea":       true,
	"not sure":      true,
	"unknown":       true,
	"n/a":           true,
	"na":            true,
	"-":             true,
	"no answer":     true,
	"skip":          true,
	"pass":          true,
}

// countUnknownAnswers counts the answers in a batch that amount to "no answer".
func countUnknownAnswers(answers []string) int {
	count := 0
	for _, answer := range answers {
		normalized := strings.ToLower(strings.TrimSpace(answer))
		if unknownMarkers[normalized] {
			count++
		}
	}
	return count
}
