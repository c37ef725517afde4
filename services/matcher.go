package services

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AnswerMatcher decides whether a submitted answer counts as correct.
type AnswerMatcher interface {
	Matches(correct, given string) bool
}

func normalizeAnswer(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// LenientMatcher accepts an exact match after normalization, or a given answer in
// which every word of the correct answer overlaps some given word (one contains the
// other). It is loose on purpose: "a" matches "Paris".
type LenientMatcher struct{}

func (LenientMatcher) Matches(correct, given string) bool {
	c := normalizeAnswer(correct)
	g := normalizeAnswer(given)
	if c == g {
		return true
	}

	correctWords := strings.Fields(c)
	givenWords := strings.Fields(g)
	if len(correctWords) == 0 || len(givenWords) == 0 {
		return false
	}

	for _, cw := range correctWords {
		found := false
		for _, gw := range givenWords {
			if strings.Contains(gw, cw) || strings.Contains(cw, gw) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ExactMatcher only accepts the normalized correct answer.
type ExactMatcher struct{}

func (ExactMatcher) Matches(correct, given string) bool {
	return normalizeAnswer(correct) == normalizeAnswer(given)
}
