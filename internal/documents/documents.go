// Package documents records uploaded reference documents and learns subject
// keywords from them.
//
// A document is stored and recorded before any of its keywords are merged.
package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"

	"github.com/google/uuid"

	"querydesk/internal/extract"
	"querydesk/internal/metrics"
	"querydesk/internal/models"
	"querydesk/internal/nlp"
	"querydesk/internal/routing"
	"querydesk/internal/storage"
)

// Recorder persists document audit records.
type Recorder interface {
	CreateSubjectDocument(ctx context.Context, doc *models.SubjectDocument) error
	UpdateSubjectDocumentResult(ctx context.Context, doc *models.SubjectDocument) error
}

// Learner merges keywords into a subject.
type Learner interface {
	Learn(ctx context.Context, subjectID uuid.UUID, text string) (routing.LearnResult, error)
	MergeKeywords(ctx context.Context, subjectID uuid.UUID, keywords []string) (routing.LearnResult, error)
}

// Service stores documents, records them and learns from them.
type Service struct {
	store    storage.Store
	recorder Recorder
	registry *extract.Registry
	learner  Learner
}

// NewService creates a document service.
func NewService(store storage.Store, recorder Recorder, registry *extract.Registry, learner Learner) *Service {
	return &Service{store: store, recorder: recorder, registry: registry, learner: learner}
}

// ContentType guesses the MIME type of a file from its name.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Record stores data and inserts the document's audit record with no learning
// outcome yet.
func (s *Service) Record(ctx context.Context, subjectID uuid.UUID, name string, data []byte) (*models.SubjectDocument, error) {
	name = filepath.Base(name)
	contentType := ContentType(name)

	uri, err := s.store.Put(ctx, storage.ObjectKey(subjectID, name), data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	doc := &models.SubjectDocument{
		SubjectID:   subjectID,
		Name:        name,
		StoragePath: uri,
		ContentType: contentType,
	}
	if err := s.recorder.CreateSubjectDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Learn extracts a recorded document and merges its keywords into the subject.
// Extraction and learning failures are saved on doc and do not return an error;
// the returned result is nil for them. The error reports a failure to save the
// outcome.
func (s *Service) Learn(ctx context.Context, doc *models.SubjectDocument, kind string, data []byte) (*routing.LearnResult, error) {
	if !s.registry.Supports(kind) {
		return nil, s.fail(ctx, doc, metrics.LearnUnsupported, "keyword learning is not supported for ."+kind+" files")
	}

	extracted, err := s.registry.Extract(ctx, kind, data)
	if err != nil {
		slog.Warn("document extraction failed", "subject_id", doc.SubjectID, "name", doc.Name, "error", err)
		return nil, s.fail(ctx, doc, metrics.LearnFailed, "could not extract text: "+err.Error())
	}
	doc.PageCount = extracted.Pages

	res, err := s.learner.Learn(ctx, doc.SubjectID, extracted.Text)
	if err != nil {
		return nil, s.learnFailed(ctx, doc, err)
	}
	return &res, s.succeed(ctx, doc, res)
}

// MergeKeywords merges keywords already extracted from a recorded document.
func (s *Service) MergeKeywords(ctx context.Context, doc *models.SubjectDocument, keywords []string) (*routing.LearnResult, error) {
	if len(keywords) == 0 {
		return nil, s.fail(ctx, doc, metrics.LearnFailed, "document contains no usable text")
	}
	res, err := s.learner.MergeKeywords(ctx, doc.SubjectID, keywords)
	if err != nil {
		return nil, s.learnFailed(ctx, doc, err)
	}
	return &res, s.succeed(ctx, doc, res)
}

// Fail saves reason as the extraction error of a recorded document.
func (s *Service) Fail(ctx context.Context, doc *models.SubjectDocument, reason string) error {
	return s.fail(ctx, doc, metrics.LearnFailed, reason)
}

func (s *Service) learnFailed(ctx context.Context, doc *models.SubjectDocument, err error) error {
	if errors.Is(err, nlp.ErrEmptyInput) {
		return s.fail(ctx, doc, metrics.LearnFailed, "document contains no usable text")
	}
	slog.Error("keyword learning failed", "subject_id", doc.SubjectID, "name", doc.Name, "error", err)
	return s.fail(ctx, doc, metrics.LearnFailed, "keyword learning failed")
}

func (s *Service) fail(ctx context.Context, doc *models.SubjectDocument, outcome, reason string) error {
	doc.ExtractionError = &reason
	metrics.RecordKeywordLearning(outcome, 0)
	return s.recorder.UpdateSubjectDocumentResult(ctx, doc)
}

func (s *Service) succeed(ctx context.Context, doc *models.SubjectDocument, res routing.LearnResult) error {
	doc.KeywordsLearned = res.Added
	metrics.RecordKeywordLearning(metrics.LearnOK, res.Added)
	slog.Info("keywords learned",
		"subject_id", doc.SubjectID,
		"name", doc.Name,
		"added", res.Added,
		"total", res.Total,
	)
	return s.recorder.UpdateSubjectDocumentResult(ctx, doc)
}
