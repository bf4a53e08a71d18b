package models

import (
	"time"

	"github.com/google/uuid"
)

// Query categories
const (
	CategoryAcademics   = "academics"
	CategoryPlacements  = "placements"
	CategorySports      = "sports"
	CategoryClubs       = "clubs"
	CategoryStudentHelp = "student_help"
)

// Categories lists every query category in display order.
var Categories = []string{
	CategoryAcademics,
	CategoryPlacements,
	CategorySports,
	CategoryClubs,
	CategoryStudentHelp,
}

// ValidCategory reports whether category is a known query category.
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// QueryStatus is the lifecycle state of a query.
type QueryStatus string

// Query status constants
const (
	StatusPending  QueryStatus = "pending"
	StatusAssigned QueryStatus = "assigned"
	StatusResolved QueryStatus = "resolved"
)

func (s QueryStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusAssigned:
		return 1
	case StatusResolved:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is a known status.
func (s QueryStatus) Valid() bool {
	return s.rank() >= 0
}

// CanTransitionTo reports whether moving from s to next keeps the status monotonic.
// Staying in the same status is allowed.
func (s QueryStatus) CanTransitionTo(next QueryStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() >= s.rank()
}

// Query is a student's question or complaint.
type Query struct {
	ID          uuid.UUID       `json:"id"`
	StudentID   uuid.UUID       `json:"student_id"`
	TeacherID   *uuid.UUID      `json:"teacher_id"`
	SubjectID   *uuid.UUID      `json:"subject_id"`
	Text        string          `json:"text"`
	Category    string          `json:"category"`
	IsAnonymous bool            `json:"is_anonymous"`
	Status      QueryStatus     `json:"status"`
	Responses   []QueryResponse `json:"responses"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// QueryResponse is a staff answer to a query.
type QueryResponse struct {
	ID          uuid.UUID `json:"id"`
	QueryID     uuid.UUID `json:"query_id"`
	Text        string    `json:"text"`
	RespondedBy uuid.UUID `json:"responded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// QueryWithDetails is a query joined with display names for listing endpoints.
type QueryWithDetails struct {
	Query
	StudentName string `json:"student_name,omitempty"`
	StudentSRN  string `json:"student_srn,omitempty"`
	TeacherName string `json:"teacher_name,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
	SubjectCode string `json:"subject_code,omitempty"`
}

// Redact hides the student identity of an anonymous query.
func (q *QueryWithDetails) Redact() {
	if !q.IsAnonymous {
		return
	}
	q.StudentID = uuid.Nil
	q.StudentName = ""
	q.StudentSRN = ""
}

// QueryStatusCount is the number of queries in one status, for metrics export.
type QueryStatusCount struct {
	Category string
	Status   QueryStatus
	Count    int64
}
