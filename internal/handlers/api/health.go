package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

// Pinger checks a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and readiness.
type HealthHandler struct {
	db         Pinger
	corpusSize func() int
}

// NewHealthHandler creates a new API health handler.
func NewHealthHandler(database Pinger, corpusSize func() int) *HealthHandler {
	return &HealthHandler{db: database, corpusSize: corpusSize}
}

// Live always succeeds while the process serves requests.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return jsonSuccess(c, fiber.Map{"alive": true})
}

// Ready checks the database connection.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "database unavailable")
	}
	return jsonSuccess(c, fiber.Map{
		"database": "ok",
		"subjects": h.corpusSize(),
	})
}
