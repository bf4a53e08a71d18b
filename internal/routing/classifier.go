package routing

import (
	"github.com/google/uuid"

	"querydesk/internal/models"
	"querydesk/internal/nlp"
)

// DefaultThreshold is the score a subject must strictly exceed to be chosen.
const DefaultThreshold = 0.1

// Score is one subject's similarity to a query.
type Score struct {
	SubjectID uuid.UUID `json:"subject_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Score     float64   `json:"score"`
}

// keywordDocument turns a subject's keyword set into the term list that is weighted
// against the query. Multi-word keywords contribute every word.
func keywordDocument(keywords []string) []string {
	var terms []string
	for _, kw := range keywords {
		for w := range nlp.Words(kw) {
			terms = append(terms, w)
		}
	}
	return terms
}

func model(subjects []models.Subject) *nlp.Model {
	docs := make([][]string, len(subjects))
	for i, s := range subjects {
		docs[i] = keywordDocument(s.Keywords)
	}
	return nlp.NewModel(docs)
}

// Rank scores every subject against query, in corpus order.
func Rank(query string, subjects []models.Subject) []Score {
	if len(subjects) == 0 {
		return nil
	}
	probe := nlp.Tokens(query)
	m := model(subjects)

	scores := make([]Score, len(subjects))
	for i, s := range subjects {
		scores[i] = Score{
			SubjectID: s.ID,
			Name:      s.Name,
			Code:      s.Code,
			Score:     m.Score(probe, i),
		}
	}
	return scores
}

// Classify returns the subject whose keywords best match query.
//
// The highest score wins and the earliest subject wins a tie. The winner is returned
// only when its score is strictly greater than threshold.
func Classify(query string, subjects []models.Subject, threshold float64) (uuid.UUID, bool) {
	if len(subjects) == 0 {
		return uuid.Nil, false
	}
	probe := nlp.Tokens(query)
	if len(probe) == 0 {
		return uuid.Nil, false
	}
	m := model(subjects)

	best := -1
	bestScore := 0.0
	for i := range subjects {
		if s := m.Score(probe, i); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 || bestScore <= threshold {
		return uuid.Nil, false
	}
	return subjects[best].ID, true
}
