package api

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"querydesk/internal/db"
	"querydesk/internal/email"
	"querydesk/internal/metrics"
	"querydesk/internal/models"
	"querydesk/internal/routing"
	"querydesk/internal/validation"
)

// QueryHandler handles the query lifecycle via JSON API.
type QueryHandler struct {
	db       *db.DB
	router   *routing.Router
	notifier *email.Notifier
}

// NewQueryHandler creates a new API query handler.
func NewQueryHandler(database *db.DB, router *routing.Router, notifier *email.Notifier) *QueryHandler {
	return &QueryHandler{db: database, router: router, notifier: notifier}
}

// canView reports whether user may read q: its author, its assignee or an admin.
func canView(user *models.User, q *models.QueryWithDetails) bool {
	if user.IsAdmin() || q.StudentID == user.ID {
		return true
	}
	return q.TeacherID != nil && *q.TeacherID == user.ID
}

// redactFor hides anonymous authors from everyone but admins and the author.
func redactFor(user *models.User, q *models.QueryWithDetails) {
	if user.IsAdmin() || q.StudentID == user.ID {
		return
	}
	q.Redact()
}

// Create submits a new query and routes it (students only).
func (h *QueryHandler) Create(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if !user.IsStudent() {
		return jsonError(c, fiber.StatusForbidden, "only students can submit queries")
	}

	var body struct {
		Text        string `json:"text"`
		Category    string `json:"category"`
		IsAnonymous bool   `json:"is_anonymous"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	body.Category = validation.NormalizeCategory(body.Category)
	if !models.ValidCategory(body.Category) {
		return jsonError(c, fiber.StatusBadRequest, "invalid category")
	}
	if valid, msg := validation.ValidateText(body.Text, validation.MaxQueryRunes); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	staff, err := h.db.ListStaff(c.Context())
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to load staff")
	}

	decision := h.router.ClassifyAndAssign(routing.RoutingRequest{
		Text:     body.Text,
		Category: body.Category,
		Staff:    staff,
		Student:  routing.StudentContextFor(user),
	})

	q := &models.Query{
		StudentID:   user.ID,
		TeacherID:   decision.Assignee,
		SubjectID:   decision.Subject,
		Text:        body.Text,
		Category:    body.Category,
		IsAnonymous: body.IsAnonymous,
		Status:      decision.Status(),
	}
	if err := h.db.CreateQuery(c.Context(), q); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to create query")
	}

	metrics.RecordRouting(q.Category, decision.Subject != nil, decision.Assignee != nil)
	h.notifier.NotifyQueryAssigned(c.Context(), q)

	return jsonCreated(c, fiber.Map{
		"query":   q,
		"routing": decision,
	})
}

// ListMine returns the signed-in student's queries.
func (h *QueryHandler) ListMine(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	queries, err := h.db.ListQueriesByStudent(c.Context(), user.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch queries")
	}
	if queries == nil {
		queries = []models.QueryWithDetails{}
	}
	return jsonSuccess(c, queries)
}

// List returns the queries assigned to a teacher, or every query for an admin
// (optionally filtered by ?status=).
func (h *QueryHandler) List(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var (
		queries []models.QueryWithDetails
		err     error
	)
	switch {
	case user.IsAdmin():
		status := models.QueryStatus(c.Query("status"))
		if status != "" && !status.Valid() {
			return jsonError(c, fiber.StatusBadRequest, "invalid status")
		}
		queries, err = h.db.ListQueries(c.Context(), status)
	case user.IsTeacher():
		queries, err = h.db.ListQueriesByTeacher(c.Context(), user.ID)
	default:
		return jsonError(c, fiber.StatusForbidden, "staff access required")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch queries")
	}

	for i := range queries {
		redactFor(user, &queries[i])
	}
	if queries == nil {
		queries = []models.QueryWithDetails{}
	}
	return jsonSuccess(c, queries)
}

// Get returns a single query with its responses.
func (h *QueryHandler) Get(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	q, status, msg := h.load(c)
	if q == nil {
		return jsonError(c, status, msg)
	}
	if !canView(user, q) {
		return jsonError(c, fiber.StatusNotFound, "query not found")
	}

	redactFor(user, q)
	return jsonSuccess(c, q)
}

// load fetches the :id query. On failure it returns nil with the status and
// message to respond with.
func (h *QueryHandler) load(c fiber.Ctx) (*models.QueryWithDetails, int, string) {
	id, err := paramID(c)
	if err != nil {
		return nil, fiber.StatusBadRequest, "invalid query id"
	}

	q, err := h.db.GetQuery(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrQueryNotFound) {
			return nil, fiber.StatusNotFound, "query not found"
		}
		return nil, fiber.StatusInternalServerError, "failed to fetch query"
	}
	return q, 0, ""
}

// Update edits a query's text or anonymity (author, assignee or admin).
func (h *QueryHandler) Update(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var body struct {
		Text        *string `json:"text"`
		IsAnonymous *bool   `json:"is_anonymous"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if body.Text != nil {
		if valid, msg := validation.ValidateText(*body.Text, validation.MaxQueryRunes); !valid {
			return jsonError(c, fiber.StatusBadRequest, msg)
		}
	}

	q, status, msg := h.load(c)
	if q == nil {
		return jsonError(c, status, msg)
	}
	if !canView(user, q) {
		return jsonError(c, fiber.StatusNotFound, "query not found")
	}

	text, anonymous := q.Text, q.IsAnonymous
	if body.Text != nil {
		text = *body.Text
	}
	if body.IsAnonymous != nil {
		anonymous = *body.IsAnonymous
	}

	if err := h.db.UpdateQuery(c.Context(), q.ID, text, anonymous); err != nil {
		if errors.Is(err, db.ErrQueryNotFound) {
			return jsonError(c, fiber.StatusNotFound, "query not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to update query")
	}

	q.Text, q.IsAnonymous = text, anonymous
	redactFor(user, q)
	return jsonSuccess(c, q)
}

// Assign hands a query to a teacher (admin only).
func (h *QueryHandler) Assign(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok || !user.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	id, err := paramID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid query id")
	}

	var body struct {
		TeacherID uuid.UUID `json:"teacher_id"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil || body.TeacherID == uuid.Nil {
		return jsonError(c, fiber.StatusBadRequest, "teacher_id is required")
	}

	teacher, err := h.db.GetUserByID(c.Context(), body.TeacherID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return jsonError(c, fiber.StatusBadRequest, "teacher not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch teacher")
	}
	if !teacher.IsTeacher() {
		return jsonError(c, fiber.StatusBadRequest, "queries can only be assigned to teachers")
	}

	if err := h.db.AssignQuery(c.Context(), id, teacher.ID); err != nil {
		switch {
		case errors.Is(err, db.ErrQueryNotFound):
			return jsonError(c, fiber.StatusNotFound, "query not found")
		case errors.Is(err, db.ErrInvalidStatusTransition):
			return jsonError(c, fiber.StatusConflict, "resolved queries cannot be reassigned")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to assign query")
	}

	q, err := h.db.GetQuery(c.Context(), id)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch query")
	}
	h.notifier.NotifyQueryAssigned(c.Context(), &q.Query)
	return jsonSuccess(c, q)
}

// Respond answers a query and resolves it (assignee or admin).
func (h *QueryHandler) Respond(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if !user.IsStaff() {
		return jsonError(c, fiber.StatusForbidden, "staff access required")
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if valid, msg := validation.ValidateText(body.Text, validation.MaxResponseRunes); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	q, status, msg := h.load(c)
	if q == nil {
		return jsonError(c, status, msg)
	}
	if !canView(user, q) {
		return jsonError(c, fiber.StatusNotFound, "query not found")
	}

	resp := &models.QueryResponse{
		QueryID:     q.ID,
		Text:        body.Text,
		RespondedBy: user.ID,
	}
	if err := h.db.AddResponse(c.Context(), resp); err != nil {
		if errors.Is(err, db.ErrQueryNotFound) {
			return jsonError(c, fiber.StatusNotFound, "query not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to save response")
	}

	h.notifier.NotifyQueryAnswered(c.Context(), &q.Query, resp)
	return jsonCreated(c, resp)
}
