package api

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"querydesk/internal/config"
	"querydesk/internal/db"
	"querydesk/internal/models"
	"querydesk/internal/validation"
)

// UserHandler handles profile and user management operations via JSON API.
type UserHandler struct {
	db  *db.DB
	cfg *config.Config
}

// NewUserHandler creates a new API user handler.
func NewUserHandler(database *db.DB, cfg *config.Config) *UserHandler {
	return &UserHandler{db: database, cfg: cfg}
}

// staffView is the public card of a teacher.
type staffView struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Picture    string    `json:"picture"`
	Categories []string  `json:"categories"`
}

// Me returns the signed-in user.
func (h *UserHandler) Me(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return jsonSuccess(c, user)
}

// UpdateProfile updates the signed-in student's enrollment data.
func (h *UserHandler) UpdateProfile(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if !user.IsStudent() {
		return jsonError(c, fiber.StatusForbidden, "only students have an enrollment profile")
	}

	var body struct {
		SRN           string `json:"srn"`
		College       string `json:"college"`
		Department    string `json:"department"`
		JoiningYear   *int   `json:"joining_year"`
		StudentNumber string `json:"student_number"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	body.SRN = validation.NormalizeCode(body.SRN)
	if body.SRN != "" && !validation.ValidateSRN(body.SRN) {
		return jsonError(c, fiber.StatusBadRequest, "srn must be 4-20 letters or digits")
	}
	if body.JoiningYear != nil && !validation.ValidateJoiningYear(*body.JoiningYear) {
		return jsonError(c, fiber.StatusBadRequest, "joining_year must be a two-digit year")
	}

	err := h.db.UpdateStudentProfile(c.Context(), user.ID, db.StudentProfile{
		SRN:           body.SRN,
		College:       body.College,
		Department:    body.Department,
		JoiningYear:   body.JoiningYear,
		StudentNumber: body.StudentNumber,
	})
	if err != nil {
		if errors.Is(err, db.ErrDuplicateSRN) {
			return jsonError(c, fiber.StatusConflict, "srn is already registered")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to update profile")
	}

	updated, err := h.db.GetUserByID(c.Context(), user.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch profile")
	}
	return jsonSuccess(c, updated)
}

// ListTeachers returns every teacher's public card.
func (h *UserHandler) ListTeachers(c fiber.Ctx) error {
	teachers, err := h.db.ListUsersByRole(c.Context(), models.RoleTeacher)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch teachers")
	}

	resp := make([]staffView, len(teachers))
	for i, t := range teachers {
		resp[i] = staffView{ID: t.ID, Name: t.Name, Email: t.Email, Picture: t.Picture, Categories: t.Categories}
	}
	return jsonSuccess(c, resp)
}

// ListStudents returns every student (teachers and admins only).
func (h *UserHandler) ListStudents(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok || !user.IsStaff() {
		return jsonError(c, fiber.StatusForbidden, "staff access required")
	}

	students, err := h.db.ListUsersByRole(c.Context(), models.RoleStudent)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch students")
	}
	return jsonSuccess(c, students)
}

// List returns users, optionally filtered by ?role= (admin only).
func (h *UserHandler) List(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok || !user.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	roles := []string{models.RoleAdmin, models.RoleTeacher, models.RoleStudent}
	if role := c.Query("role"); role != "" {
		if !models.ValidRole(role) {
			return jsonError(c, fiber.StatusBadRequest, "invalid role")
		}
		roles = []string{role}
	}

	users := []models.User{}
	for _, role := range roles {
		batch, err := h.db.ListUsersByRole(c.Context(), role)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "failed to fetch users")
		}
		users = append(users, batch...)
	}
	return jsonSuccess(c, users)
}

// Get returns a single user with eligibility (admin only).
func (h *UserHandler) Get(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok || !user.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	id, err := paramID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid user id")
	}

	target, err := h.db.GetUserByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return jsonError(c, fiber.StatusNotFound, "user not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch user")
	}
	return jsonSuccess(c, target)
}

// UpdateRole updates a user's role (admin only).
func (h *UserHandler) UpdateRole(c fiber.Ctx) error {
	admin, ok := currentUser(c)
	if !ok || !admin.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	userID, err := paramID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid user id")
	}
	if userID == admin.ID {
		return jsonError(c, fiber.StatusBadRequest, "cannot change your own role")
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if !models.ValidRole(body.Role) {
		return jsonError(c, fiber.StatusBadRequest, "role must be student, teacher or admin")
	}

	if err := h.db.UpdateUserRole(c.Context(), userID, body.Role); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return jsonError(c, fiber.StatusNotFound, "user not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to update role")
	}

	return jsonSuccess(c, fiber.Map{
		"message": "role updated",
		"role":    body.Role,
	})
}

// UpdateEligibility replaces a teacher's categories and teaching assignments (admin only).
func (h *UserHandler) UpdateEligibility(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok || !user.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	userID, err := paramID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var body struct {
		Categories      []string                    `json:"categories"`
		ClassesTeaching []models.TeachingAssignment `json:"classes_teaching"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if valid, msg := validation.ValidateCategories(body.Categories); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	for i := range body.ClassesTeaching {
		ta := &body.ClassesTeaching[i]
		ta.Section = validation.NormalizeCode(ta.Section)
		if ta.SubjectID == uuid.Nil {
			return jsonError(c, fiber.StatusBadRequest, "subject_id is required for every class")
		}
		if !validation.ValidateSemester(ta.Semester) {
			return jsonError(c, fiber.StatusBadRequest, "semester must be between 1 and 12")
		}
		if !validation.ValidateSection(ta.Section) {
			return jsonError(c, fiber.StatusBadRequest, "section must be a letter optionally followed by a letter or digit")
		}
	}

	target, err := h.db.GetUserByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return jsonError(c, fiber.StatusNotFound, "user not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch user")
	}
	if !target.IsTeacher() {
		return jsonError(c, fiber.StatusBadRequest, "eligibility can only be set for teachers")
	}

	if err := h.db.SetStaffEligibility(c.Context(), userID, body.Categories, body.ClassesTeaching); err != nil {
		if errors.Is(err, db.ErrSubjectNotFound) {
			return jsonError(c, fiber.StatusBadRequest, "unknown subject in classes_teaching")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to update eligibility")
	}

	updated, err := h.db.GetUserByID(c.Context(), userID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch user")
	}
	return jsonSuccess(c, updated)
}

// Delete deletes a user (admin only).
func (h *UserHandler) Delete(c fiber.Ctx) error {
	admin, ok := currentUser(c)
	if !ok || !admin.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	userID, err := paramID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid user id")
	}
	if userID == admin.ID {
		return jsonError(c, fiber.StatusBadRequest, "cannot delete yourself")
	}

	if err := h.db.DeleteUser(c.Context(), userID); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return jsonError(c, fiber.StatusNotFound, "user not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete user")
	}

	return jsonSuccess(c, fiber.Map{"message": "user deleted"})
}
