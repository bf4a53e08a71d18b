package nlp

import (
	"errors"
	"slices"
)

// DefaultKeywordLimit is the number of keywords learned from one document.
const DefaultKeywordLimit = 30

// ErrEmptyInput is returned when there are no tokens to extract keywords from.
// Callers treat it as "no keywords learned", not as a failed upload.
var ErrEmptyInput = errors.New("no tokens to extract keywords from")

// Keyword is a ranked term with its weight and raw count.
type Keyword struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
	Count  int     `json:"count"`
}

// ExtractKeywords returns up to limit distinct terms of tokens, heaviest first.
// Equal weights keep first-occurrence order. A non-positive limit means
// DefaultKeywordLimit.
func ExtractKeywords(tokens []string, limit int) ([]string, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyInput
	}
	m := NewModel([][]string{tokens})
	return terms(rank(m, 0, tokens), limit), nil
}

// ExtractBatch extracts keywords from several documents at once, weighting terms by
// IDF across the batch so terms shared by every document sink below distinctive ones.
// The result has one entry per document; documents without tokens get nil.
// ErrEmptyInput is returned only when no document has any tokens.
func ExtractBatch(docs [][]string, limit int) ([][]string, error) {
	empty := true
	for _, doc := range docs {
		if len(doc) > 0 {
			empty = false
			break
		}
	}
	if empty {
		return nil, ErrEmptyInput
	}

	m := NewModel(docs)
	out := make([][]string, len(docs))
	for i, doc := range docs {
		if len(doc) == 0 {
			continue
		}
		out[i] = terms(rank(m, i, doc), limit)
	}
	return out, nil
}

// Rank returns every distinct term of tokens with its weight in a single-document
// model, heaviest first, ties in first-occurrence order.
func Rank(tokens []string) []Keyword {
	if len(tokens) == 0 {
		return nil
	}
	return rank(NewModel([][]string{tokens}), 0, tokens)
}

func rank(m *Model, doc int, tokens []string) []Keyword {
	index := make(map[string]int, len(tokens))
	ranked := make([]Keyword, 0, len(tokens))
	for _, t := range tokens {
		if i, ok := index[t]; ok {
			ranked[i].Count++
			continue
		}
		index[t] = len(ranked)
		ranked = append(ranked, Keyword{Term: t, Count: 1})
	}

	for i := range ranked {
		ranked[i].Weight = m.TFIDF(ranked[i].Term, doc)
	}

	// Stable sort: ranked is in first-occurrence order, so ties stay that way.
	slices.SortStableFunc(ranked, func(a, b Keyword) int {
		switch {
		case a.Weight > b.Weight:
			return -1
		case a.Weight < b.Weight:
			return 1
		default:
			return 0
		}
	})
	return ranked
}

func terms(ranked []Keyword, limit int) []string {
	if limit <= 0 {
		limit = DefaultKeywordLimit
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, kw := range ranked {
		out[i] = kw.Term
	}
	return out
}
