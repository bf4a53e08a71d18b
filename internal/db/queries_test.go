package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"querydesk/internal/models"
)

func TestCreateAndGetQuery(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	student := createUser(t, db, "student", "")
	teacher := createUser(t, db, "teacher", models.RoleTeacher)
	os := createSubject(t, db, "Operating Systems", "CS301")

	q := &models.Query{
		StudentID: student.ID,
		TeacherID: &teacher.ID,
		SubjectID: &os.ID,
		Text:      "How does process scheduling work?",
		Category:  models.CategoryAcademics,
		Status:    models.StatusAssigned,
	}
	if err := db.CreateQuery(ctx, q); err != nil {
		t.Fatalf("CreateQuery() error = %v", err)
	}

	got, err := db.GetQuery(ctx, q.ID)
	if err != nil {
		t.Fatalf("GetQuery() error = %v", err)
	}
	if got.Status != models.StatusAssigned {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusAssigned)
	}
	if got.SubjectCode != "CS301" || got.TeacherName != teacher.Name || got.StudentName != student.Name {
		t.Errorf("details = %+v", got)
	}

	if _, err := db.GetQuery(ctx, uuid.New()); !errors.Is(err, ErrQueryNotFound) {
		t.Errorf("GetQuery() missing error = %v, want ErrQueryNotFound", err)
	}
}

func TestCreateQuery_DefaultsToPending(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	student := createUser(t, db, "student", "")
	q := &models.Query{StudentID: student.ID, Text: "Canteen hours?", Category: models.CategoryStudentHelp}
	if err := db.CreateQuery(ctx, q); err != nil {
		t.Fatalf("CreateQuery() error = %v", err)
	}
	if q.Status != models.StatusPending {
		t.Errorf("Status = %q, want %q", q.Status, models.StatusPending)
	}
}

func TestListQueries(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	s1 := createUser(t, db, "s1", "")
	s2 := createUser(t, db, "s2", "")
	teacher := createUser(t, db, "teacher", models.RoleTeacher)

	for _, q := range []*models.Query{
		{StudentID: s1.ID, Text: "one", Category: models.CategoryAcademics},
		{StudentID: s1.ID, Text: "two", Category: models.CategorySports, TeacherID: &teacher.ID, Status: models.StatusAssigned},
		{StudentID: s2.ID, Text: "three", Category: models.CategoryClubs},
	} {
		if err := db.CreateQuery(ctx, q); err != nil {
			t.Fatalf("CreateQuery() error = %v", err)
		}
	}

	mine, err := db.ListQueriesByStudent(ctx, s1.ID)
	if err != nil || len(mine) != 2 {
		t.Errorf("ListQueriesByStudent() = %d, %v; want 2", len(mine), err)
	}
	assigned, err := db.ListQueriesByTeacher(ctx, teacher.ID)
	if err != nil || len(assigned) != 1 {
		t.Errorf("ListQueriesByTeacher() = %d, %v; want 1", len(assigned), err)
	}
	all, err := db.ListQueries(ctx, "")
	if err != nil || len(all) != 3 {
		t.Errorf("ListQueries() = %d, %v; want 3", len(all), err)
	}
	pending, err := db.ListQueries(ctx, models.StatusPending)
	if err != nil || len(pending) != 2 {
		t.Errorf("ListQueries(pending) = %d, %v; want 2", len(pending), err)
	}

	counts, err := db.CountQueriesByStatus(ctx)
	if err != nil {
		t.Fatalf("CountQueriesByStatus() error = %v", err)
	}
	var total int64
	for _, c := range counts {
		total += c.Count
	}
	if total != 3 {
		t.Errorf("CountQueriesByStatus() total = %d, want 3", total)
	}
}

func TestQueryLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	student := createUser(t, db, "student", "")
	teacher := createUser(t, db, "teacher", models.RoleTeacher)

	q := &models.Query{StudentID: student.ID, Text: "Lab marks missing", Category: models.CategoryAcademics}
	if err := db.CreateQuery(ctx, q); err != nil {
		t.Fatalf("CreateQuery() error = %v", err)
	}

	if err := db.UpdateQuery(ctx, q.ID, "Lab 3 marks missing", true); err != nil {
		t.Fatalf("UpdateQuery() error = %v", err)
	}
	if err := db.AssignQuery(ctx, q.ID, teacher.ID); err != nil {
		t.Fatalf("AssignQuery() error = %v", err)
	}

	r := &models.QueryResponse{QueryID: q.ID, Text: "Updated on the portal.", RespondedBy: teacher.ID}
	if err := db.AddResponse(ctx, r); err != nil {
		t.Fatalf("AddResponse() error = %v", err)
	}

	got, err := db.GetQuery(ctx, q.ID)
	if err != nil {
		t.Fatalf("GetQuery() error = %v", err)
	}
	if got.Status != models.StatusResolved || !got.IsAnonymous || got.Text != "Lab 3 marks missing" {
		t.Errorf("query after lifecycle = %+v", got.Query)
	}
	if len(got.Responses) != 1 || got.Responses[0].RespondedBy != teacher.ID {
		t.Errorf("Responses = %+v", got.Responses)
	}

	if err := db.AssignQuery(ctx, q.ID, teacher.ID); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("AssignQuery() on resolved error = %v, want ErrInvalidStatusTransition", err)
	}
	if err := db.AssignQuery(ctx, uuid.New(), teacher.ID); !errors.Is(err, ErrQueryNotFound) {
		t.Errorf("AssignQuery() missing error = %v, want ErrQueryNotFound", err)
	}
	if err := db.AddResponse(ctx, &models.QueryResponse{QueryID: uuid.New(), Text: "x", RespondedBy: teacher.ID}); !errors.Is(err, ErrQueryNotFound) {
		t.Errorf("AddResponse() missing error = %v, want ErrQueryNotFound", err)
	}
}
