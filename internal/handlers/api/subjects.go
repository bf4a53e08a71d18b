package api

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"querydesk/internal/db"
	"querydesk/internal/models"
	"querydesk/internal/nlp"
	"querydesk/internal/routing"
	"querydesk/internal/validation"
)

// SubjectHandler handles subject operations via JSON API. Every change is mirrored
// into the routing corpus.
type SubjectHandler struct {
	db     *db.DB
	corpus *routing.Corpus
}

// NewSubjectHandler creates a new API subject handler.
func NewSubjectHandler(database *db.DB, corpus *routing.Corpus) *SubjectHandler {
	return &SubjectHandler{db: database, corpus: corpus}
}

type subjectBody struct {
	Name       string   `json:"name"`
	Code       string   `json:"code"`
	Department string   `json:"department"`
	Semester   int      `json:"semester"`
	Keywords   []string `json:"keywords"`
}

// validate normalizes the body in place and returns an error message if invalid.
func (b *subjectBody) validate() string {
	b.Name = strings.TrimSpace(b.Name)
	b.Code = validation.NormalizeCode(b.Code)
	b.Department = strings.TrimSpace(b.Department)

	if valid, msg := validation.ValidateSubjectName(b.Name); !valid {
		return msg
	}
	if !validation.ValidateSubjectCode(b.Code) {
		return "code must be 2-20 uppercase letters, digits or hyphens"
	}
	if b.Semester != 0 && !validation.ValidateSemester(b.Semester) {
		return "semester must be between 1 and 12"
	}
	if len(b.Keywords) > validation.MaxSeedKeywords {
		return "too many keywords"
	}
	return ""
}

// seedKeywords normalizes admin-entered keywords so they match normalized queries.
// A multi-word keyword stays one keyword; keywords that normalize to nothing are dropped.
func seedKeywords(raw []string) []string {
	var out []string
	for _, kw := range raw {
		if tokens := nlp.Tokens(kw); len(tokens) > 0 {
			out = append(out, strings.Join(tokens, " "))
		}
	}
	merged, _ := models.MergeKeywords(nil, out)
	return merged
}

// List returns every subject.
func (h *SubjectHandler) List(c fiber.Ctx) error {
	subjects, err := h.db.ListSubjects(c.Context())
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch subjects")
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}
	return jsonSuccess(c, subjects)
}

// Get returns a single subject with its documents.
func (h *SubjectHandler) Get(c fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid subject id")
	}

	subject, err := h.db.GetSubject(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrSubjectNotFound) {
			return jsonError(c, fiber.StatusNotFound, "subject not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch subject")
	}
	return jsonSuccess(c, subject)
}

// Create creates a subject with optional seed keywords (admin only).
func (h *SubjectHandler) Create(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok || !user.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	var body subjectBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := body.validate(); msg != "" {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	subject := &models.Subject{
		Name:       body.Name,
		Code:       body.Code,
		Department: body.Department,
		Semester:   body.Semester,
		Keywords:   seedKeywords(body.Keywords),
	}
	if err := h.db.CreateSubject(c.Context(), subject); err != nil {
		if errors.Is(err, db.ErrDuplicateSubject) {
			return jsonError(c, fiber.StatusConflict, "a subject with this name or code already exists")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to create subject")
	}

	h.corpus.Add(*subject)
	return jsonCreated(c, subject)
}

// Update changes a subject's descriptive fields (admin only). Keywords only grow
// through uploads, so any keywords in the body are merged, never replaced.
func (h *SubjectHandler) Update(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok || !user.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	id, err := paramID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid subject id")
	}

	var body subjectBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := body.validate(); msg != "" {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	subject := &models.Subject{
		ID:         id,
		Name:       body.Name,
		Code:       body.Code,
		Department: body.Department,
		Semester:   body.Semester,
	}
	if err := h.db.UpdateSubject(c.Context(), subject); err != nil {
		switch {
		case errors.Is(err, db.ErrSubjectNotFound):
			return jsonError(c, fiber.StatusNotFound, "subject not found")
		case errors.Is(err, db.ErrDuplicateSubject):
			return jsonError(c, fiber.StatusConflict, "a subject with this name or code already exists")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to update subject")
	}

	if kws := seedKeywords(body.Keywords); len(kws) > 0 {
		merged, _, err := h.db.MergeSubjectKeywords(c.Context(), id, kws)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "failed to merge keywords")
		}
		subject.Keywords = merged
	}

	h.corpus.Add(*subject)
	return jsonSuccess(c, subject)
}

// Delete deletes a subject and drops it from routing (admin only).
func (h *SubjectHandler) Delete(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok || !user.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	id, err := paramID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid subject id")
	}

	if err := h.db.DeleteSubject(c.Context(), id); err != nil {
		if errors.Is(err, db.ErrSubjectNotFound) {
			return jsonError(c, fiber.StatusNotFound, "subject not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete subject")
	}

	h.corpus.Remove(id)
	return jsonSuccess(c, fiber.Map{"message": "subject deleted"})
}
