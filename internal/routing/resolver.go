package routing

import (
	"bytes"

	"github.com/google/uuid"

	"querydesk/internal/models"
)

// SemesterPolicy derives a student's current semester from a two-digit joining year as
// Multiplier * (BaseYear - joiningYear).
type SemesterPolicy struct {
	BaseYear   int `yaml:"base_year"`
	Multiplier int `yaml:"multiplier"`
}

// DefaultSemesterPolicy reproduces the institution's 2 * (25 - joiningYear) rule.
var DefaultSemesterPolicy = SemesterPolicy{BaseYear: 25, Multiplier: 2}

// Semester returns the semester for a student who joined in joiningYear.
func (p SemesterPolicy) Semester(joiningYear int) int {
	return p.Multiplier * (p.BaseYear - joiningYear)
}

// StudentContext is the enrollment data the resolver needs about the asking student.
type StudentContext struct {
	JoiningYear *int
}

// StudentContextFor builds the resolver context from a user profile.
func StudentContextFor(u *models.User) StudentContext {
	if u == nil {
		return StudentContext{}
	}
	return StudentContext{JoiningYear: u.JoiningYear}
}

// ResolveRequest describes the query being assigned.
type ResolveRequest struct {
	Category  string
	SubjectID *uuid.UUID
	Student   StudentContext
}

// Resolve picks the staff member who should answer a query.
//
// Academic queries go to a teacher holding a teaching assignment for the classified
// subject in the student's current semester. Other categories go to a teacher listed
// for that category. Among eligible teachers the lowest ID is chosen.
func Resolve(req ResolveRequest, staff []models.User, policy SemesterPolicy) (uuid.UUID, bool) {
	var eligible func(u *models.User) bool

	switch req.Category {
	case models.CategoryAcademics:
		if req.SubjectID == nil || req.Student.JoiningYear == nil {
			return uuid.Nil, false
		}
		subjectID := *req.SubjectID
		semester := policy.Semester(*req.Student.JoiningYear)
		eligible = func(u *models.User) bool {
			return u.Teaches(subjectID, semester)
		}
	default:
		eligible = func(u *models.User) bool {
			return u.HandlesCategory(req.Category)
		}
	}

	found := false
	var pick uuid.UUID
	for i := range staff {
		u := &staff[i]
		if !u.IsTeacher() || !eligible(u) {
			continue
		}
		if !found || bytes.Compare(u.ID[:], pick[:]) < 0 {
			pick, found = u.ID, true
		}
	}
	return pick, found
}
