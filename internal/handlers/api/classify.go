package api

import (
	"encoding/json"
	"slices"

	"github.com/gofiber/fiber/v3"

	"querydesk/internal/routing"
	"querydesk/internal/validation"
)

// ClassifyHandler previews how a query would be classified.
type ClassifyHandler struct {
	router *routing.Router
}

// NewClassifyHandler creates a new API classify handler.
func NewClassifyHandler(router *routing.Router) *ClassifyHandler {
	return &ClassifyHandler{router: router}
}

// Preview ranks every subject against the text without creating a query (admin only).
func (h *ClassifyHandler) Preview(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok || !user.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if valid, msg := validation.ValidateText(body.Text, validation.MaxQueryRunes); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	subjects := h.router.Corpus().All()
	threshold := h.router.Policy().Threshold

	resp := fiber.Map{
		"threshold": threshold,
		"subject":   nil,
		"scores":    []routing.Score{},
	}
	if id, ok := routing.Classify(body.Text, subjects, threshold); ok {
		resp["subject"] = id
	}

	scores := routing.Rank(body.Text, subjects)
	if scores != nil {
		// Highest first; the stable sort keeps corpus order among equal scores.
		slices.SortStableFunc(scores, func(a, b routing.Score) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			}
			return 0
		})
		resp["scores"] = scores
	}

	return jsonSuccess(c, resp)
}
