package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"querydesk/internal/models"
	"querydesk/internal/nlp"
)

// TextExtractor turns raw document bytes of a given kind into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, kind string, data []byte) (string, error)
}

// KeywordStore persists subject keywords. MergeSubjectKeywords must apply the union
// atomically and return the full keyword set and the number of keywords added.
type KeywordStore interface {
	MergeSubjectKeywords(ctx context.Context, id uuid.UUID, keywords []string) ([]string, int, error)
}

// Policy holds the tunable routing parameters.
type Policy struct {
	Threshold    float64
	KeywordLimit int
	Semester     SemesterPolicy
}

// DefaultPolicy returns the standard routing parameters.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:    DefaultThreshold,
		KeywordLimit: nlp.DefaultKeywordLimit,
		Semester:     DefaultSemesterPolicy,
	}
}

// Router learns subject keywords from documents and routes new queries.
type Router struct {
	extractor TextExtractor
	store     KeywordStore
	corpus    *Corpus
	policy    Policy
}

// NewRouter creates a router. store may be nil, in which case keywords are only
// merged into the in-memory corpus.
func NewRouter(extractor TextExtractor, store KeywordStore, corpus *Corpus, policy Policy) *Router {
	if corpus == nil {
		corpus = NewCorpus(nil)
	}
	return &Router{
		extractor: extractor,
		store:     store,
		corpus:    corpus,
		policy:    policy,
	}
}

// Corpus returns the router's subject corpus.
func (r *Router) Corpus() *Corpus {
	return r.corpus
}

// Policy returns the router's routing parameters.
func (r *Router) Policy() Policy {
	return r.policy
}

// LearnResult reports what a document contributed to its subject.
type LearnResult struct {
	Keywords []string // keywords extracted from the document
	Added    int      // keywords that were new to the subject
	Total    int      // subject keyword count after the merge
}

// ExtractAndMerge extracts the text of a document and merges its keywords into the
// subject. It returns the subject's updated keyword count.
func (r *Router) ExtractAndMerge(ctx context.Context, subjectID uuid.UUID, data []byte, kind string) (int, error) {
	res, err := r.ExtractAndLearn(ctx, subjectID, data, kind)
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// ExtractAndLearn is ExtractAndMerge with the full learning result.
func (r *Router) ExtractAndLearn(ctx context.Context, subjectID uuid.UUID, data []byte, kind string) (LearnResult, error) {
	if r.extractor == nil {
		return LearnResult{}, errors.New("no text extractor configured")
	}
	text, err := r.extractor.ExtractText(ctx, kind, data)
	if err != nil {
		return LearnResult{}, err
	}
	return r.Learn(ctx, subjectID, text)
}

// Learn merges the keywords of already extracted text into the subject.
func (r *Router) Learn(ctx context.Context, subjectID uuid.UUID, text string) (LearnResult, error) {
	keywords, err := nlp.ExtractKeywords(nlp.Tokens(text), r.policy.KeywordLimit)
	if err != nil {
		return LearnResult{}, err
	}
	return r.MergeKeywords(ctx, subjectID, keywords)
}

// MergeKeywords merges keywords into the subject's stored set and the corpus.
func (r *Router) MergeKeywords(ctx context.Context, subjectID uuid.UUID, keywords []string) (LearnResult, error) {
	res := LearnResult{Keywords: keywords}

	if r.store == nil {
		merged, added, err := r.corpus.merge(subjectID, keywords)
		if err != nil {
			return LearnResult{}, err
		}
		res.Added = added
		res.Total = len(merged)
		return res, nil
	}

	merged, added, err := r.store.MergeSubjectKeywords(ctx, subjectID, keywords)
	if err != nil {
		return LearnResult{}, fmt.Errorf("merge subject keywords: %w", err)
	}
	res.Added = added
	res.Total = len(merged)

	if _, err := r.corpus.MergeKeywords(subjectID, merged); err != nil {
		// The next corpus refresh picks the subject up from the store.
		slog.Warn("subject missing from corpus", "subject_id", subjectID, "error", err)
	}
	return res, nil
}

// RoutingRequest is everything needed to route one new query.
type RoutingRequest struct {
	Text     string
	Category string
	Subjects []models.Subject // nil means the router's current corpus snapshot
	Staff    []models.User
	Student  StudentContext
}

// RoutingDecision is the outcome of routing a query. Nil fields mean no match.
type RoutingDecision struct {
	Subject  *uuid.UUID `json:"subject_id"`
	Assignee *uuid.UUID `json:"assignee_id"`
}

// Status returns the status a query created with this decision starts in.
func (d RoutingDecision) Status() models.QueryStatus {
	if d.Assignee != nil {
		return models.StatusAssigned
	}
	return models.StatusPending
}

// ClassifyAndAssign classifies an academic query against the subject snapshot and
// resolves an assignee. Other categories skip classification.
func (r *Router) ClassifyAndAssign(req RoutingRequest) RoutingDecision {
	var decision RoutingDecision

	if req.Category == models.CategoryAcademics {
		subjects := req.Subjects
		if subjects == nil {
			subjects = r.corpus.All()
		}
		if id, ok := Classify(req.Text, subjects, r.policy.Threshold); ok {
			decision.Subject = &id
		}
	}

	if req.Category != models.CategoryAcademics || decision.Subject != nil {
		id, ok := Resolve(ResolveRequest{
			Category:  req.Category,
			SubjectID: decision.Subject,
			Student:   req.Student,
		}, req.Staff, r.policy.Semester)
		if ok {
			decision.Assignee = &id
		}
	}

	slog.Debug("query routed",
		"category", req.Category,
		"subject_id", decision.Subject,
		"assignee_id", decision.Assignee,
	)
	return decision
}
