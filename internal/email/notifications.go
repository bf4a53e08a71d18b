package email

import (
	"context"
	"log"

	"github.com/google/uuid"

	"querydesk/internal/config"
	"querydesk/internal/models"
)

// UserGetter looks up the people a notification concerns.
type UserGetter interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// Notifier sends email notifications for query lifecycle events.
type Notifier struct {
	service   *Service
	templates *Templates
	cfg       *config.Config
	users     UserGetter
}

// NewNotifier creates a new email notifier.
func NewNotifier(cfg *config.Config, users UserGetter) *Notifier {
	return &Notifier{
		service:   NewService(cfg),
		templates: NewTemplates(cfg),
		cfg:       cfg,
		users:     users,
	}
}

// NotifyQueryAssigned tells the assigned teacher about a new query.
func (n *Notifier) NotifyQueryAssigned(ctx context.Context, q *models.Query) {
	if !n.service.IsEnabled() || q.TeacherID == nil {
		return
	}

	teacher, err := n.users.GetUserByID(ctx, *q.TeacherID)
	if err != nil {
		log.Printf("Failed to get assigned teacher %s: %v", *q.TeacherID, err)
		return
	}
	if teacher.Email == "" {
		return
	}

	var from string
	if !q.IsAnonymous {
		if student, err := n.users.GetUserByID(ctx, q.StudentID); err == nil {
			from = student.Name
		}
	}

	subject, htmlBody, textBody := n.templates.QueryAssigned(q, from)
	n.service.SendAsync([]string{teacher.Email}, subject, htmlBody, textBody)
}

// NotifyQueryAnswered tells the student that staff responded to their query.
func (n *Notifier) NotifyQueryAnswered(ctx context.Context, q *models.Query, resp *models.QueryResponse) {
	if !n.service.IsEnabled() {
		return
	}

	student, err := n.users.GetUserByID(ctx, q.StudentID)
	if err != nil {
		log.Printf("Failed to get query author %s: %v", q.StudentID, err)
		return
	}
	if student.Email == "" {
		return
	}

	var responder string
	if staff, err := n.users.GetUserByID(ctx, resp.RespondedBy); err == nil {
		responder = staff.Name
	}

	subject, htmlBody, textBody := n.templates.QueryAnswered(q, resp, responder)
	n.service.SendAsync([]string{student.Email}, subject, htmlBody, textBody)
}
