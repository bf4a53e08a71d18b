package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"querydesk/internal/db"
	"querydesk/internal/email"
	"querydesk/internal/extract"
	"querydesk/internal/handlers"
	"querydesk/internal/handlers/api"
	"querydesk/internal/metrics"
	"querydesk/internal/middleware"
	"querydesk/internal/models"
	"querydesk/internal/routing"
	"querydesk/internal/storage"
)

// Deps are the services the routes are built from.
type Deps struct {
	DB       *db.DB
	Router   *routing.Router
	Store    storage.Store
	Registry *extract.Registry
	Notifier *email.Notifier
	Metrics  *metrics.Metrics
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(ctx context.Context, deps Deps) error {
	// OIDC is the only way to sign in
	if !s.Cfg.IsOIDCEnabled() {
		return errors.New("OIDC_ISSUER and OIDC_CLIENT_ID are required; all users must be authenticated")
	}

	authHandler, err := handlers.NewAuthHandler(ctx, s.Cfg, deps.DB)
	if err != nil {
		return err
	}

	s.App.Get("/auth/login", authHandler.Login)
	s.App.Get("/auth/callback", authHandler.Callback)
	s.App.Get("/auth/logout", authHandler.Logout)

	s.registerAPI(deps, middleware.NewAuthMiddleware(deps.DB).RequireAuth)
	return nil
}

// registerAPI mounts the operational endpoints and the /api group behind requireAuth.
func (s *Server) registerAPI(deps Deps, requireAuth fiber.Handler) {
	health := api.NewHealthHandler(deps.DB, deps.Router.Corpus().Len)
	s.App.Get("/healthz", health.Live)
	s.App.Get("/readyz", health.Ready)
	if deps.Metrics != nil {
		s.App.Get("/metrics", deps.Metrics.Handler())
	}

	users := api.NewUserHandler(deps.DB, s.Cfg)
	subjects := api.NewSubjectHandler(deps.DB, deps.Router.Corpus())
	uploads := api.NewUploadHandler(deps.DB, s.Cfg, deps.Store, deps.Registry, deps.Router)
	queries := api.NewQueryHandler(deps.DB, deps.Router, deps.Notifier)
	classify := api.NewClassifyHandler(deps.Router)

	adminOnly := middleware.RequireRole(models.RoleAdmin)
	staffOnly := middleware.RequireRole(models.RoleTeacher, models.RoleAdmin)

	r := s.App.Group("/api", requireAuth)

	// Profile and directory
	r.Get("/me", users.Me)
	r.Put("/me/profile", users.UpdateProfile)
	r.Get("/teachers", users.ListTeachers)
	r.Get("/students", staffOnly, users.ListStudents)

	// User administration
	r.Get("/users", adminOnly, users.List)
	r.Get("/users/:id", adminOnly, users.Get)
	r.Put("/users/:id/role", adminOnly, users.UpdateRole)
	r.Put("/users/:id/eligibility", adminOnly, users.UpdateEligibility)
	r.Delete("/users/:id", adminOnly, users.Delete)

	// Subjects and reference documents
	r.Get("/subjects", subjects.List)
	r.Get("/subjects/:id", subjects.Get)
	r.Post("/subjects", adminOnly, subjects.Create)
	r.Put("/subjects/:id", adminOnly, subjects.Update)
	r.Delete("/subjects/:id", adminOnly, subjects.Delete)
	r.Get("/subjects/:id/documents", adminOnly, uploads.ListDocuments)
	r.Post("/subjects/:id/documents", adminOnly, uploads.Upload)

	// Queries
	r.Post("/queries", queries.Create)
	r.Get("/queries/mine", queries.ListMine)
	r.Get("/queries", staffOnly, queries.List)
	r.Get("/queries/:id", queries.Get)
	r.Put("/queries/:id", queries.Update)
	r.Put("/queries/:id/assign", adminOnly, queries.Assign)
	r.Post("/queries/:id/responses", staffOnly, queries.Respond)

	r.Post("/classify", adminOnly, classify.Preview)
}
