package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"querydesk/internal/models"
)

const queryDetailColumns = `q.id, q.student_id, q.teacher_id, q.subject_id, q.text, q.category,
	q.is_anonymous, q.status, q.created_at, q.updated_at,
	COALESCE(st.name, ''), COALESCE(st.srn, ''), COALESCE(te.name, ''),
	COALESCE(sb.name, ''), COALESCE(sb.code, '')`

const queryDetailFrom = `
	FROM queries q
	JOIN users st ON st.id = q.student_id
	LEFT JOIN users te ON te.id = q.teacher_id
	LEFT JOIN subjects sb ON sb.id = q.subject_id`

func scanQueryDetails(row pgx.Row) (*models.QueryWithDetails, error) {
	var q models.QueryWithDetails
	err := row.Scan(
		&q.ID,
		&q.StudentID,
		&q.TeacherID,
		&q.SubjectID,
		&q.Text,
		&q.Category,
		&q.IsAnonymous,
		&q.Status,
		&q.CreatedAt,
		&q.UpdatedAt,
		&q.StudentName,
		&q.StudentSRN,
		&q.TeacherName,
		&q.SubjectName,
		&q.SubjectCode,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQueryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func scanQueryList(rows pgx.Rows) ([]models.QueryWithDetails, error) {
	defer rows.Close()

	var queries []models.QueryWithDetails
	for rows.Next() {
		q, err := scanQueryDetails(rows)
		if err != nil {
			return nil, err
		}
		queries = append(queries, *q)
	}
	return queries, rows.Err()
}

// CreateQuery inserts a query with the subject, teacher and status decided at routing time.
func (d *DB) CreateQuery(ctx context.Context, q *models.Query) error {
	status := q.Status
	if status == "" {
		status = models.StatusPending
	}
	query := `
		INSERT INTO queries (student_id, teacher_id, subject_id, text, category, is_anonymous, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, status, created_at, updated_at
	`
	return d.Pool.QueryRow(ctx, query,
		q.StudentID,
		q.TeacherID,
		q.SubjectID,
		q.Text,
		q.Category,
		q.IsAnonymous,
		status,
	).Scan(&q.ID, &q.Status, &q.CreatedAt, &q.UpdatedAt)
}

// GetQuery retrieves a query with display names and responses.
func (d *DB) GetQuery(ctx context.Context, id uuid.UUID) (*models.QueryWithDetails, error) {
	q, err := scanQueryDetails(d.Pool.QueryRow(ctx,
		`SELECT `+queryDetailColumns+queryDetailFrom+` WHERE q.id = $1`, id))
	if err != nil {
		return nil, err
	}
	q.Responses, err = d.ListResponses(ctx, id)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListQueriesByStudent returns a student's queries, newest first.
func (d *DB) ListQueriesByStudent(ctx context.Context, studentID uuid.UUID) ([]models.QueryWithDetails, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT `+queryDetailColumns+queryDetailFrom+` WHERE q.student_id = $1 ORDER BY q.created_at DESC`,
		studentID)
	if err != nil {
		return nil, err
	}
	return scanQueryList(rows)
}

// ListQueriesByTeacher returns the queries assigned to a teacher, newest first.
func (d *DB) ListQueriesByTeacher(ctx context.Context, teacherID uuid.UUID) ([]models.QueryWithDetails, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT `+queryDetailColumns+queryDetailFrom+` WHERE q.teacher_id = $1 ORDER BY q.created_at DESC`,
		teacherID)
	if err != nil {
		return nil, err
	}
	return scanQueryList(rows)
}

// ListQueries returns all queries, optionally filtered by status, newest first.
func (d *DB) ListQueries(ctx context.Context, status models.QueryStatus) ([]models.QueryWithDetails, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT `+queryDetailColumns+queryDetailFrom+`
		WHERE ($1 = '' OR q.status = $1)
		ORDER BY q.created_at DESC`,
		string(status))
	if err != nil {
		return nil, err
	}
	return scanQueryList(rows)
}

// UpdateQuery changes a query's text and anonymity.
func (d *DB) UpdateQuery(ctx context.Context, id uuid.UUID, text string, isAnonymous bool) error {
	tag, err := d.Pool.Exec(ctx,
		`UPDATE queries SET text = $2, is_anonymous = $3, updated_at = NOW() WHERE id = $1`,
		id, text, isAnonymous)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQueryNotFound
	}
	return nil
}

// AssignQuery hands a query to a teacher. Resolved queries cannot be reassigned.
func (d *DB) AssignQuery(ctx context.Context, id, teacherID uuid.UUID) error {
	return d.withTx(ctx, func(tx pgx.Tx) error {
		var status models.QueryStatus
		err := tx.QueryRow(ctx, `SELECT status FROM queries WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQueryNotFound
		}
		if err != nil {
			return err
		}
		if !status.CanTransitionTo(models.StatusAssigned) {
			return ErrInvalidStatusTransition
		}

		_, err = tx.Exec(ctx,
			`UPDATE queries SET teacher_id = $2, status = $3, updated_at = NOW() WHERE id = $1`,
			id, teacherID, models.StatusAssigned)
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return err
	})
}

// AddResponse records a staff response and marks the query resolved.
func (d *DB) AddResponse(ctx context.Context, r *models.QueryResponse) error {
	return d.withTx(ctx, func(tx pgx.Tx) error {
		var status models.QueryStatus
		err := tx.QueryRow(ctx, `SELECT status FROM queries WHERE id = $1 FOR UPDATE`, r.QueryID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQueryNotFound
		}
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO query_responses (query_id, text, responded_by)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, r.QueryID, r.Text, r.RespondedBy).Scan(&r.ID, &r.CreatedAt)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE queries SET status = $2, updated_at = NOW() WHERE id = $1`,
			r.QueryID, models.StatusResolved)
		return err
	})
}

// ListResponses returns the responses to a query, oldest first.
func (d *DB) ListResponses(ctx context.Context, queryID uuid.UUID) ([]models.QueryResponse, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, query_id, text, responded_by, created_at
		FROM query_responses
		WHERE query_id = $1
		ORDER BY created_at, id
	`, queryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []models.QueryResponse
	for rows.Next() {
		var r models.QueryResponse
		if err := rows.Scan(&r.ID, &r.QueryID, &r.Text, &r.RespondedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// CountQueriesByStatus returns query counts grouped by category and status.
func (d *DB) CountQueriesByStatus(ctx context.Context) ([]models.QueryStatusCount, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT category, status, COUNT(*)
		FROM queries
		GROUP BY category, status
		ORDER BY category, status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.QueryStatusCount
	for rows.Next() {
		var c models.QueryStatusCount
		if err := rows.Scan(&c.Category, &c.Status, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
