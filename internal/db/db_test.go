package db

import (
	"context"
	"os"
	"testing"

	"querydesk/internal/models"
)

func skipIfNoTestDB(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}
}

func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()
	skipIfNoTestDB(t)

	connString := os.Getenv("TEST_DATABASE_URL")
	ctx := context.Background()
	database, err := New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	clean := func() {
		database.Pool.Exec(ctx, "DELETE FROM query_responses")
		database.Pool.Exec(ctx, "DELETE FROM queries")
		database.Pool.Exec(ctx, "DELETE FROM subject_documents")
		database.Pool.Exec(ctx, "DELETE FROM teaching_assignments")
		database.Pool.Exec(ctx, "DELETE FROM subjects")
		database.Pool.Exec(ctx, "DELETE FROM users")
	}
	clean()

	return database, func() {
		clean()
		database.Close()
	}
}

func createUser(t *testing.T, d *DB, sub, role string) *models.User {
	t.Helper()
	u := &models.User{Sub: sub, Email: sub + "@example.edu", Name: "User " + sub, Role: role}
	if err := d.UpsertUser(context.Background(), u); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	if role != "" && u.Role != role {
		if err := d.UpdateUserRole(context.Background(), u.ID, role); err != nil {
			t.Fatalf("UpdateUserRole() error = %v", err)
		}
		u.Role = role
	}
	return u
}

func createSubject(t *testing.T, d *DB, name, code string, keywords ...string) *models.Subject {
	t.Helper()
	s := &models.Subject{Name: name, Code: code, Department: "CSE", Semester: 5, Keywords: keywords}
	if err := d.CreateSubject(context.Background(), s); err != nil {
		t.Fatalf("CreateSubject() error = %v", err)
	}
	return s
}
