package api

import (
	"errors"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"querydesk/internal/config"
	"querydesk/internal/db"
	"querydesk/internal/documents"
	"querydesk/internal/extract"
	"querydesk/internal/models"
	"querydesk/internal/routing"
	"querydesk/internal/storage"
	"querydesk/internal/validation"
)

// UploadHandler stores reference documents and learns subject keywords from them.
type UploadHandler struct {
	db   *db.DB
	cfg  *config.Config
	docs *documents.Service
}

// NewUploadHandler creates a new API upload handler.
func NewUploadHandler(database *db.DB, cfg *config.Config, store storage.Store, registry *extract.Registry, router *routing.Router) *UploadHandler {
	return &UploadHandler{
		db:   database,
		cfg:  cfg,
		docs: documents.NewService(store, database, registry, router),
	}
}

// Upload accepts a multipart "document" for a subject (admin only). The file is
// stored and recorded before any keyword is learned; a learning failure is
// saved on the document record.
func (h *UploadHandler) Upload(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok || !user.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	subjectID, err := paramID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid subject id")
	}

	fh, err := c.FormFile("document")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "multipart field \"document\" is required")
	}

	kind, msg := validation.ValidateUpload(fh.Filename, fh.Size, int64(h.cfg.MaxUploadBytes), h.cfg.Routing.UploadKinds)
	if msg != "" {
		status := fiber.StatusBadRequest
		if fh.Size > int64(h.cfg.MaxUploadBytes) {
			status = fiber.StatusRequestEntityTooLarge
		}
		return jsonError(c, status, msg)
	}

	if _, err := h.db.GetSubject(c.Context(), subjectID); err != nil {
		if errors.Is(err, db.ErrSubjectNotFound) {
			return jsonError(c, fiber.StatusNotFound, "subject not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch subject")
	}

	f, err := fh.Open()
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "failed to read upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(h.cfg.MaxUploadBytes)+1))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "failed to read upload")
	}
	if len(data) > h.cfg.MaxUploadBytes {
		return jsonError(c, fiber.StatusRequestEntityTooLarge, "File exceeds the upload size limit")
	}

	doc, err := h.docs.Record(c.Context(), subjectID, fh.Filename, data)
	if err != nil {
		if errors.Is(err, db.ErrSubjectNotFound) {
			return jsonError(c, fiber.StatusNotFound, "subject not found")
		}
		slog.Error("failed to record document", "subject_id", subjectID, "name", fh.Filename, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to record document")
	}

	learned, err := h.docs.Learn(c.Context(), doc, kind, data)
	if err != nil {
		slog.Error("failed to save learning outcome", "document_id", doc.ID, "error", err)
	}

	return jsonCreated(c, fiber.Map{
		"document": doc,
		"learned":  learned,
	})
}

// ListDocuments returns a subject's document records (admin only).
func (h *UploadHandler) ListDocuments(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok || !user.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	subjectID, err := paramID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid subject id")
	}

	docs, err := h.db.ListSubjectDocuments(c.Context(), subjectID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch documents")
	}
	if docs == nil {
		docs = []models.SubjectDocument{}
	}
	return jsonSuccess(c, docs)
}
