package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"querydesk/internal/models"
)

const subjectColumns = `id, name, code, department, semester, keywords, created_at, updated_at`

func scanSubject(row pgx.Row) (*models.Subject, error) {
	var s models.Subject
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Code,
		&s.Department,
		&s.Semester,
		&s.Keywords,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSubject inserts a subject. Seed keywords are deduplicated.
func (d *DB) CreateSubject(ctx context.Context, s *models.Subject) error {
	keywords, _ := models.MergeKeywords(nil, s.Keywords)
	query := `
		INSERT INTO subjects (name, code, department, semester, keywords)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + subjectColumns

	created, err := scanSubject(d.Pool.QueryRow(ctx, query, s.Name, s.Code, s.Department, s.Semester, keywords))
	if isUniqueViolation(err) {
		return ErrDuplicateSubject
	}
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

// GetSubject retrieves a subject with its document records.
func (d *DB) GetSubject(ctx context.Context, id uuid.UUID) (*models.Subject, error) {
	s, err := scanSubject(d.Pool.QueryRow(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	s.Documents, err = d.ListSubjectDocuments(ctx, id)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetSubjectByCode retrieves a subject by its code, without documents.
func (d *DB) GetSubjectByCode(ctx context.Context, code string) (*models.Subject, error) {
	return scanSubject(d.Pool.QueryRow(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE code = $1`, code))
}

// ListSubjects returns every subject in creation order.
func (d *DB) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+subjectColumns+` FROM subjects ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []models.Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, *s)
	}
	return subjects, rows.Err()
}

// UpdateSubject updates a subject's descriptive fields. Keywords are never replaced.
func (d *DB) UpdateSubject(ctx context.Context, s *models.Subject) error {
	query := `
		UPDATE subjects SET name = $2, code = $3, department = $4, semester = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + subjectColumns

	updated, err := scanSubject(d.Pool.QueryRow(ctx, query, s.ID, s.Name, s.Code, s.Department, s.Semester))
	if isUniqueViolation(err) {
		return ErrDuplicateSubject
	}
	if err != nil {
		return err
	}
	*s = *updated
	return nil
}

// DeleteSubject deletes a subject. Queries routed to it keep their text and lose the link.
func (d *DB) DeleteSubject(ctx context.Context, id uuid.UUID) error {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

// MergeSubjectKeywords adds every keyword not already on the subject. The row is
// locked for the duration so concurrent merges into one subject are serialized.
// It returns the full keyword set and the number of keywords added.
func (d *DB) MergeSubjectKeywords(ctx context.Context, id uuid.UUID, keywords []string) ([]string, int, error) {
	var (
		merged []string
		added  int
	)
	err := d.withTx(ctx, func(tx pgx.Tx) error {
		var existing []string
		err := tx.QueryRow(ctx, `SELECT keywords FROM subjects WHERE id = $1 FOR UPDATE`, id).Scan(&existing)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSubjectNotFound
		}
		if err != nil {
			return err
		}

		merged, added = models.MergeKeywords(existing, keywords)
		if added == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, `UPDATE subjects SET keywords = $2, updated_at = NOW() WHERE id = $1`, id, merged)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return merged, added, nil
}

// CreateSubjectDocument records an uploaded document.
func (d *DB) CreateSubjectDocument(ctx context.Context, doc *models.SubjectDocument) error {
	query := `
		INSERT INTO subject_documents
			(subject_id, name, storage_path, content_type, page_count, keywords_learned, extraction_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, uploaded_at
	`
	err := d.Pool.QueryRow(ctx, query,
		doc.SubjectID,
		doc.Name,
		doc.StoragePath,
		doc.ContentType,
		doc.PageCount,
		doc.KeywordsLearned,
		doc.ExtractionError,
	).Scan(&doc.ID, &doc.UploadedAt)
	if isForeignKeyViolation(err) {
		return ErrSubjectNotFound
	}
	return err
}

// UpdateSubjectDocumentResult saves the keyword learning outcome of a recorded document.
func (d *DB) UpdateSubjectDocumentResult(ctx context.Context, doc *models.SubjectDocument) error {
	tag, err := d.Pool.Exec(ctx, `
		UPDATE subject_documents
		SET page_count = $2, keywords_learned = $3, extraction_error = $4
		WHERE id = $1
	`, doc.ID, doc.PageCount, doc.KeywordsLearned, doc.ExtractionError)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// ListSubjectDocuments returns the document records of a subject, oldest first.
func (d *DB) ListSubjectDocuments(ctx context.Context, subjectID uuid.UUID) ([]models.SubjectDocument, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, subject_id, name, storage_path, content_type, page_count,
			   keywords_learned, extraction_error, uploaded_at
		FROM subject_documents
		WHERE subject_id = $1
		ORDER BY uploaded_at, id
	`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.SubjectDocument
	for rows.Next() {
		var doc models.SubjectDocument
		if err := rows.Scan(
			&doc.ID, &doc.SubjectID, &doc.Name, &doc.StoragePath, &doc.ContentType, &doc.PageCount,
			&doc.KeywordsLearned, &doc.ExtractionError, &doc.UploadedAt,
		); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
