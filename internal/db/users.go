package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"querydesk/internal/models"
)

// userColumns is the standard column list for user queries.
const userColumns = `id, sub, email, name, picture, role, COALESCE(srn, ''), college, department,
	joining_year, student_number, categories, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Sub,
		&u.Email,
		&u.Name,
		&u.Picture,
		&u.Role,
		&u.SRN,
		&u.College,
		&u.Department,
		&u.JoiningYear,
		&u.StudentNumber,
		&u.Categories,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanUsers(rows pgx.Rows) ([]models.User, error) {
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// UpsertUser creates or updates a user based on their OIDC subject.
// A new user gets user.Role, or student when it is empty. The role of an existing
// user is only changed when user.Role is admin.
func (d *DB) UpsertUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (sub, email, name, picture, role)
		VALUES ($1, $2, $3, $4, COALESCE($5, 'student'))
		ON CONFLICT (sub) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			picture = EXCLUDED.picture,
			role = CASE WHEN $5 = 'admin' THEN 'admin' ELSE users.role END,
			updated_at = NOW()
		RETURNING ` + userColumns

	u, err := scanUser(d.Pool.QueryRow(ctx, query,
		user.Sub,
		user.Email,
		user.Name,
		user.Picture,
		nullIfEmpty(user.Role),
	))
	if err != nil {
		return err
	}
	*user = *u
	return nil
}

// GetUserBySub retrieves a user by their OIDC subject identifier.
func (d *DB) GetUserBySub(ctx context.Context, sub string) (*models.User, error) {
	u, err := scanUser(d.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE sub = $1`, sub))
	if err != nil {
		return nil, err
	}
	return u, d.loadTeaching(ctx, u)
}

// GetUserByID retrieves a user by their UUID.
func (d *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(d.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return u, d.loadTeaching(ctx, u)
}

func (d *DB) loadTeaching(ctx context.Context, u *models.User) error {
	if u.IsStudent() {
		return nil
	}
	rows, err := d.Pool.Query(ctx, `
		SELECT subject_id, semester, section FROM teaching_assignments
		WHERE user_id = $1
		ORDER BY semester, subject_id, section
	`, u.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	u.ClassesTeaching = nil
	for rows.Next() {
		var ta models.TeachingAssignment
		if err := rows.Scan(&ta.SubjectID, &ta.Semester, &ta.Section); err != nil {
			return err
		}
		u.ClassesTeaching = append(u.ClassesTeaching, ta)
	}
	return rows.Err()
}

// StudentProfile is the enrollment data a student maintains.
type StudentProfile struct {
	SRN           string
	College       string
	Department    string
	JoiningYear   *int
	StudentNumber string
}

// UpdateStudentProfile updates a user's enrollment data.
func (d *DB) UpdateStudentProfile(ctx context.Context, userID uuid.UUID, p StudentProfile) error {
	query := `
		UPDATE users SET
			srn = $2, college = $3, department = $4, joining_year = $5, student_number = $6,
			updated_at = NOW()
		WHERE id = $1
	`
	tag, err := d.Pool.Exec(ctx, query, userID,
		nullIfEmpty(p.SRN), p.College, p.Department, p.JoiningYear, p.StudentNumber)
	if isUniqueViolation(err) {
		return ErrDuplicateSRN
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateUserRole updates a user's role (admin only).
func (d *DB) UpdateUserRole(ctx context.Context, userID uuid.UUID, role string) error {
	tag, err := d.Pool.Exec(ctx, `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`, role, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetStaffEligibility replaces a staff member's non-academic categories and
// teaching assignments.
func (d *DB) SetStaffEligibility(ctx context.Context, userID uuid.UUID, categories []string, classes []models.TeachingAssignment) error {
	if categories == nil {
		categories = []string{}
	}
	return d.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET categories = $2, updated_at = NOW() WHERE id = $1`, userID, categories)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM teaching_assignments WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, ta := range classes {
			_, err := tx.Exec(ctx, `
				INSERT INTO teaching_assignments (user_id, subject_id, semester, section)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT DO NOTHING
			`, userID, ta.SubjectID, ta.Semester, ta.Section)
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: %s", ErrSubjectNotFound, ta.SubjectID)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteUser deletes a user by ID.
func (d *DB) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsersByRole returns all users with the given role, ordered by name.
func (d *DB) ListUsersByRole(ctx context.Context, role string) ([]models.User, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY name ASC, email ASC`, role)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

// ListStaff returns every teacher with their categories and teaching assignments,
// ordered by ID. This is the eligibility snapshot used to assign queries.
func (d *DB) ListStaff(ctx context.Context) ([]models.User, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY id`, models.RoleTeacher)
	if err != nil {
		return nil, err
	}
	staff, err := scanUsers(rows)
	if err != nil {
		return nil, err
	}

	index := make(map[uuid.UUID]int, len(staff))
	for i, u := range staff {
		index[u.ID] = i
	}

	rows, err = d.Pool.Query(ctx, `
		SELECT ta.user_id, ta.subject_id, ta.semester, ta.section
		FROM teaching_assignments ta
		JOIN users u ON u.id = ta.user_id
		WHERE u.role = $1
		ORDER BY ta.user_id, ta.semester, ta.subject_id, ta.section
	`, models.RoleTeacher)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID uuid.UUID
		var ta models.TeachingAssignment
		if err := rows.Scan(&userID, &ta.SubjectID, &ta.Semester, &ta.Section); err != nil {
			return nil, err
		}
		if i, ok := index[userID]; ok {
			staff[i].ClassesTeaching = append(staff[i].ClassesTeaching, ta)
		}
	}
	return staff, rows.Err()
}

// GetUserCount returns the total number of users.
func (d *DB) GetUserCount(ctx context.Context) (int, error) {
	var count int
	err := d.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
