package resolver

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Matcher scores a query against a set of candidate keys on a 0-100 scale.
type Matcher interface {
	BestMatch(query string, choices []string) (choice string, score int)
}

// TokenSetMatcher ranks with token-set ratio, which ignores word order and
// duplicate tokens, so "order abc123" still lands on "abc123 - a@b.com".
type TokenSetMatcher struct{}

func (TokenSetMatcher) BestMatch(query string, choices []string) (string, int) {
	best, bestScore := "", -1
	for _, c := range choices {
		if s := fuzzy.TokenSetRatio(query, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, bestScore
}
