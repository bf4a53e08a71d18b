// Package testutil provides helpers for integration tests that need Postgres.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"querydesk/internal/db"
	"querydesk/internal/models"
)

// TestDB connects to TEST_DATABASE_URL, applies migrations and empties every table.
// The test is skipped when the variable is unset. The returned function cleans up
// and closes the pool.
func TestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanupTestData(ctx, database.Pool)
	cleanup := func() {
		cleanupTestData(ctx, database.Pool)
		database.Close()
	}

	return database, cleanup
}

// cleanupTestData removes all rows, children first.
func cleanupTestData(ctx context.Context, pool *pgxpool.Pool) {
	for _, table := range []string{
		"query_responses",
		"queries",
		"subject_documents",
		"teaching_assignments",
		"subjects",
		"users",
	} {
		pool.Exec(ctx, "DELETE FROM "+table)
	}
}

// CreateTestUser creates a user with the given role.
func CreateTestUser(t *testing.T, database *db.DB, sub, role string) *models.User {
	t.Helper()
	ctx := context.Background()

	u := &models.User{Sub: sub, Email: sub + "@example.edu", Name: "Test User " + sub}
	if err := database.UpsertUser(ctx, u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	if role != "" && role != u.Role {
		if err := database.UpdateUserRole(ctx, u.ID, role); err != nil {
			t.Fatalf("failed to set test user role: %v", err)
		}
		u.Role = role
	}
	return u
}

// CreateTestSubject creates a subject with seed keywords.
func CreateTestSubject(t *testing.T, database *db.DB, name, code string, keywords ...string) *models.Subject {
	t.Helper()

	s := &models.Subject{Name: name, Code: code, Department: "CSE", Semester: 5, Keywords: keywords}
	if err := database.CreateSubject(context.Background(), s); err != nil {
		t.Fatalf("failed to create test subject: %v", err)
	}
	return s
}
