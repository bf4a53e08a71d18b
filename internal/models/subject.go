package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Subject is a course that queries can be routed to.
type Subject struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Code       string            `json:"code"`
	Department string            `json:"department"`
	Semester   int               `json:"semester"`
	Keywords   []string          `json:"keywords"`
	Documents  []SubjectDocument `json:"documents,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// SubjectDocument is the audit record of an uploaded reference document.
// The extracted text is never stored; only the learned keywords land on the subject.
type SubjectDocument struct {
	ID              uuid.UUID `json:"id"`
	SubjectID       uuid.UUID `json:"subject_id"`
	Name            string    `json:"name"`
	StoragePath     string    `json:"storage_path"`
	ContentType     string    `json:"content_type"`
	PageCount       *int      `json:"page_count,omitempty"`
	KeywordsLearned int       `json:"keywords_learned"`
	ExtractionError *string   `json:"extraction_error,omitempty"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

// Clone returns a copy of s whose keyword and document slices are not shared.
func (s Subject) Clone() Subject {
	s.Keywords = slices.Clone(s.Keywords)
	s.Documents = slices.Clone(s.Documents)
	return s
}

// MergeKeywords appends every keyword of incoming not already present in existing.
// Existing order is kept, new keywords are appended in incoming order, and empty
// strings are ignored. It returns the merged set and the number of keywords added.
func MergeKeywords(existing, incoming []string) ([]string, int) {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, kw := range existing {
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		merged = append(merged, kw)
	}

	before := len(merged)
	for _, kw := range incoming {
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		merged = append(merged, kw)
	}

	return merged, len(merged) - before
}
