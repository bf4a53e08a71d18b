package nlp

import "math"

// Model holds term statistics for a fixed set of documents.
//
// TF is the raw count of a term in a document. IDF is 1 + ln(N / (1 + df)), where N
// is the number of documents and df the number containing the term. The +1 keeps the
// weight positive when every document contains the term, so a single-document corpus
// still scores its own terms.
type Model struct {
	docs []map[string]int
	df   map[string]int
}

// NewModel builds a model over docs. Each doc is a token sequence.
func NewModel(docs [][]string) *Model {
	m := &Model{
		docs: make([]map[string]int, len(docs)),
		df:   make(map[string]int),
	}
	for i, doc := range docs {
		counts := make(map[string]int, len(doc))
		for _, term := range doc {
			counts[term]++
		}
		for term := range counts {
			m.df[term]++
		}
		m.docs[i] = counts
	}
	return m
}

// Len returns the number of documents in the model.
func (m *Model) Len() int {
	return len(m.docs)
}

// TF returns the count of term in document doc.
func (m *Model) TF(term string, doc int) float64 {
	if doc < 0 || doc >= len(m.docs) {
		return 0
	}
	return float64(m.docs[doc][term])
}

// IDF returns the inverse document frequency of term. An empty model weighs nothing.
func (m *Model) IDF(term string) float64 {
	if len(m.docs) == 0 {
		return 0
	}
	return 1 + math.Log(float64(len(m.docs))/float64(1+m.df[term]))
}

// TFIDF returns the weight of term in document doc.
func (m *Model) TFIDF(term string, doc int) float64 {
	tf := m.TF(term, doc)
	if tf == 0 {
		return 0
	}
	return tf * m.IDF(term)
}

// Score sums the TF-IDF weight of every probe term against document doc.
// Repeated probe terms count once per occurrence.
func (m *Model) Score(probe []string, doc int) float64 {
	var score float64
	for _, term := range probe {
		score += m.TFIDF(term, doc)
	}
	return score
}
