package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Role constants
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleTeacher || role == RoleAdmin
}

// User represents a user authenticated via OIDC.
type User struct {
	ID      uuid.UUID `json:"id"`
	Sub     string    `json:"sub"` // OIDC subject identifier
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Picture string    `json:"picture"`
	Role    string    `json:"role"` // student, teacher, admin

	// Student profile
	SRN           string `json:"srn,omitempty"`
	College       string `json:"college,omitempty"`
	Department    string `json:"department,omitempty"`
	JoiningYear   *int   `json:"joining_year,omitempty"` // two-digit year, e.g. 22
	StudentNumber string `json:"student_number,omitempty"`

	// Staff eligibility
	Categories      []string             `json:"categories,omitempty"`
	ClassesTeaching []TeachingAssignment `json:"classes_teaching,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TeachingAssignment is one (subject, semester, section) class a staff member teaches.
type TeachingAssignment struct {
	SubjectID uuid.UUID `json:"subject_id"`
	Semester  int       `json:"semester"`
	Section   string    `json:"section"`
}

// IsAdmin returns true if the user is an admin.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsTeacher returns true if the user is a teacher.
func (u *User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

// IsStudent returns true if the user is a student.
func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

// IsStaff returns true if the user can answer queries.
func (u *User) IsStaff() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}

// HandlesCategory returns true if the user is listed for a non-academic category.
func (u *User) HandlesCategory(category string) bool {
	return slices.Contains(u.Categories, category)
}

// Teaches returns true if the user teaches subjectID in the given semester.
func (u *User) Teaches(subjectID uuid.UUID, semester int) bool {
	for _, ta := range u.ClassesTeaching {
		if ta.SubjectID == subjectID && ta.Semester == semester {
			return true
		}
	}
	return false
}
