package catalog

import (
	"sort"
	"strings"

	"bookiovoice/models"
	"bookiovoice/utils/textfold"
)

const minTokenLen = 3

// Search ranks services against a spoken query. Matching ignores case and
// diacritics and tolerates Slovak case endings ("epiláciu" finds "Epilácia").
// Title hits outrank description hits; ties keep catalog order.
func Search(services []models.Service, query string) []models.Service {
	folded := textfold.Fold(query)
	var terms []string
	for _, tok := range textfold.Tokens(query) {
		if len([]rune(tok)) >= minTokenLen {
			terms = append(terms, tok)
		}
	}
	if folded == "" || len(terms) == 0 {
		return nil
	}

	type scored struct {
		svc   models.Service
		score int
	}
	var hits []scored
	for _, s := range services {
		title := textfold.Fold(s.Title)
		score := 0
		if strings.Contains(title, folded) {
			score += 10
		}
		titleTokens := textfold.Tokens(s.Title)
		descTokens := textfold.Tokens(s.Description)
		for _, term := range terms {
			switch {
			case anyMatch(term, titleTokens):
				score += 3
			case anyMatch(term, descTokens):
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{svc: s, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]models.Service, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.svc)
	}
	return out
}

func anyMatch(term string, tokens []string) bool {
	for _, t := range tokens {
		if stemMatch(term, t) {
			return true
		}
	}
	return false
}

// stemMatch treats two words as equal when they share all but their last two
// letters, and at least four.
func stemMatch(a, b string) bool {
	if a == b {
		return true
	}
	ra, rb := []rune(a), []rune(b)
	short := min(len(ra), len(rb))
	if short < 4 {
		return false
	}
	common := 0
	for common < short && ra[common] == rb[common] {
		common++
	}
	return common >= 4 && common >= short-2
}
