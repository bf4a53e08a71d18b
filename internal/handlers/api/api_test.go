package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querydesk/internal/config"
	"querydesk/internal/extract"
	"querydesk/internal/models"
	"querydesk/internal/routing"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

// newApp returns an app whose requests run as user (nil means anonymous).
func newApp(user *models.User) *fiber.App {
	app := fiber.New()
	app.Use(func(c fiber.Ctx) error {
		if user != nil {
			c.Locals("user", user)
		}
		return c.Next()
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return send(t, app, req)
}

func send(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func asRole(role string) *models.User {
	return &models.User{ID: uuid.New(), Name: role, Role: role}
}

func testRouter(subjects ...models.Subject) *routing.Router {
	return routing.NewRouter(extract.NewRegistry(), nil, routing.NewCorpus(subjects), routing.DefaultPolicy())
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	app := newApp(nil)
	h := NewHealthHandler(fakePinger{}, func() int { return 3 })
	app.Get("/livez", h.Live)
	app.Get("/readyz", h.Ready)

	status, env := do(t, app, "GET", "/livez", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", env.Status)

	status, env = do(t, app, "GET", "/readyz", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"database":"ok","subjects":3}`, string(env.Data))
}

func TestHealth_DatabaseDown(t *testing.T) {
	app := newApp(nil)
	h := NewHealthHandler(fakePinger{err: errors.New("refused")}, func() int { return 0 })
	app.Get("/readyz", h.Ready)

	status, env := do(t, app, "GET", "/readyz", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "database unavailable", env.Error)
}

func TestClassifyPreview(t *testing.T) {
	osID, dbID := uuid.New(), uuid.New()
	router := testRouter(
		models.Subject{ID: osID, Name: "Operating Systems", Code: "CS301", Keywords: []string{"process", "thread", "schedul", "deadlock"}},
		models.Subject{ID: dbID, Name: "Database Management", Code: "CS302", Keywords: []string{"sql", "tabl", "join", "index"}},
	)
	h := NewClassifyHandler(router)

	t.Run("admin sees ranked scores", func(t *testing.T) {
		app := newApp(asRole(models.RoleAdmin))
		app.Post("/classify", h.Preview)

		status, env := do(t, app, "POST", "/classify", fiber.Map{"text": "How do I write a SQL join across two tables?"})
		require.Equal(t, fiber.StatusOK, status)

		var data struct {
			Threshold float64         `json:"threshold"`
			Subject   *uuid.UUID      `json:"subject"`
			Scores    []routing.Score `json:"scores"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, routing.DefaultThreshold, data.Threshold)
		require.NotNil(t, data.Subject)
		assert.Equal(t, dbID, *data.Subject)
		require.Len(t, data.Scores, 2)
		assert.Equal(t, dbID, data.Scores[0].SubjectID)
		assert.Greater(t, data.Scores[0].Score, data.Scores[1].Score)
	})

	t.Run("no match", func(t *testing.T) {
		app := newApp(asRole(models.RoleAdmin))
		app.Post("/classify", h.Preview)

		status, env := do(t, app, "POST", "/classify", fiber.Map{"text": "Where is the cafeteria?"})
		require.Equal(t, fiber.StatusOK, status)
		assert.Contains(t, string(env.Data), `"subject":null`)
	})

	t.Run("students are forbidden", func(t *testing.T) {
		app := newApp(asRole(models.RoleStudent))
		app.Post("/classify", h.Preview)

		status, _ := do(t, app, "POST", "/classify", fiber.Map{"text": "sql"})
		assert.Equal(t, fiber.StatusForbidden, status)
	})

	t.Run("empty text", func(t *testing.T) {
		app := newApp(asRole(models.RoleAdmin))
		app.Post("/classify", h.Preview)

		status, env := do(t, app, "POST", "/classify", fiber.Map{"text": "  "})
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "Text is required", env.Error)
	})
}

func TestQueryCreate_Validation(t *testing.T) {
	h := NewQueryHandler(nil, testRouter(), nil)

	tests := []struct {
		name       string
		user       *models.User
		body       any
		wantStatus int
		wantError  string
	}{
		{"anonymous", nil, fiber.Map{"text": "hi"}, fiber.StatusUnauthorized, "unauthorized"},
		{"teacher", asRole(models.RoleTeacher), fiber.Map{"text": "hi"}, fiber.StatusForbidden, "only students can submit queries"},
		{"bad category", asRole(models.RoleStudent), fiber.Map{"text": "hi", "category": "chess"}, fiber.StatusBadRequest, "invalid category"},
		{"empty text", asRole(models.RoleStudent), fiber.Map{"text": ""}, fiber.StatusBadRequest, "Text is required"},
		{"bad json", asRole(models.RoleStudent), "not an object", fiber.StatusBadRequest, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(tt.user)
			app.Post("/queries", h.Create)

			status, env := do(t, app, "POST", "/queries", tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantError, env.Error)
		})
	}
}

func TestQueryList_StudentsForbidden(t *testing.T) {
	app := newApp(asRole(models.RoleStudent))
	app.Get("/queries", NewQueryHandler(nil, testRouter(), nil).List)

	status, _ := do(t, app, "GET", "/queries", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestQueryList_InvalidStatus(t *testing.T) {
	app := newApp(asRole(models.RoleAdmin))
	app.Get("/queries", NewQueryHandler(nil, testRouter(), nil).List)

	status, env := do(t, app, "GET", "/queries?status=closed", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid status", env.Error)
}

func TestQueryAssign_Validation(t *testing.T) {
	h := NewQueryHandler(nil, testRouter(), nil)

	app := newApp(asRole(models.RoleTeacher))
	app.Put("/queries/:id/assign", h.Assign)
	status, _ := do(t, app, "PUT", "/queries/"+uuid.NewString()+"/assign", fiber.Map{"teacher_id": uuid.New()})
	assert.Equal(t, fiber.StatusForbidden, status)

	app = newApp(asRole(models.RoleAdmin))
	app.Put("/queries/:id/assign", h.Assign)
	status, env := do(t, app, "PUT", "/queries/not-a-uuid/assign", fiber.Map{"teacher_id": uuid.New()})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid query id", env.Error)

	status, env = do(t, app, "PUT", "/queries/"+uuid.NewString()+"/assign", fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "teacher_id is required", env.Error)
}

func TestQueryRespond_Validation(t *testing.T) {
	h := NewQueryHandler(nil, testRouter(), nil)

	app := newApp(asRole(models.RoleStudent))
	app.Post("/queries/:id/responses", h.Respond)
	status, _ := do(t, app, "POST", "/queries/"+uuid.NewString()+"/responses", fiber.Map{"text": "done"})
	assert.Equal(t, fiber.StatusForbidden, status)

	app = newApp(asRole(models.RoleTeacher))
	app.Post("/queries/:id/responses", h.Respond)
	status, env := do(t, app, "POST", "/queries/"+uuid.NewString()+"/responses", fiber.Map{"text": ""})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Text is required", env.Error)
}

func TestCanViewAndRedact(t *testing.T) {
	student := asRole(models.RoleStudent)
	teacher := asRole(models.RoleTeacher)
	other := asRole(models.RoleTeacher)
	admin := asRole(models.RoleAdmin)

	newQuery := func() *models.QueryWithDetails {
		return &models.QueryWithDetails{
			Query:       models.Query{StudentID: student.ID, TeacherID: &teacher.ID, IsAnonymous: true},
			StudentName: "Asha",
			StudentSRN:  "PES1UG22CS001",
		}
	}

	q := newQuery()
	assert.True(t, canView(student, q))
	assert.True(t, canView(teacher, q))
	assert.True(t, canView(admin, q))
	assert.False(t, canView(other, q))

	redactFor(teacher, q)
	assert.Equal(t, uuid.Nil, q.StudentID)
	assert.Empty(t, q.StudentName)
	assert.Empty(t, q.StudentSRN)

	q = newQuery()
	redactFor(admin, q)
	assert.Equal(t, "Asha", q.StudentName)

	q = newQuery()
	redactFor(student, q)
	assert.Equal(t, "Asha", q.StudentName)

	q = newQuery()
	q.IsAnonymous = false
	redactFor(teacher, q)
	assert.Equal(t, "Asha", q.StudentName)
}

func TestUsers_Validation(t *testing.T) {
	h := NewUserHandler(nil, &config.Config{})
	admin := asRole(models.RoleAdmin)

	app := newApp(admin)
	app.Put("/users/:id/role", h.UpdateRole)
	app.Put("/users/:id/eligibility", h.UpdateEligibility)
	app.Delete("/users/:id", h.Delete)
	app.Get("/users", h.List)

	status, env := do(t, app, "PUT", "/users/"+admin.ID.String()+"/role", fiber.Map{"role": "student"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "cannot change your own role", env.Error)

	status, env = do(t, app, "PUT", "/users/"+uuid.NewString()+"/role", fiber.Map{"role": "dean"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "role must be student, teacher or admin", env.Error)

	status, env = do(t, app, "PUT", "/users/"+uuid.NewString()+"/eligibility", fiber.Map{"categories": []string{"academics"}})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Academic eligibility comes from teaching assignments", env.Error)

	status, env = do(t, app, "PUT", "/users/"+uuid.NewString()+"/eligibility", fiber.Map{
		"classes_teaching": []fiber.Map{{"subject_id": uuid.New(), "semester": 14, "section": "A"}},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "semester must be between 1 and 12", env.Error)

	status, env = do(t, app, "DELETE", "/users/"+admin.ID.String(), nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "cannot delete yourself", env.Error)

	status, env = do(t, app, "GET", "/users?role=dean", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid role", env.Error)
}

func TestUsers_Me(t *testing.T) {
	h := NewUserHandler(nil, &config.Config{})
	user := asRole(models.RoleStudent)

	app := newApp(user)
	app.Get("/me", h.Me)
	status, env := do(t, app, "GET", "/me", nil)
	require.Equal(t, fiber.StatusOK, status)

	var got models.User
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, user.ID, got.ID)

	app = newApp(nil)
	app.Get("/me", h.Me)
	status, _ = do(t, app, "GET", "/me", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestUpdateProfile_Validation(t *testing.T) {
	h := NewUserHandler(nil, &config.Config{})

	app := newApp(asRole(models.RoleTeacher))
	app.Put("/me/profile", h.UpdateProfile)
	status, _ := do(t, app, "PUT", "/me/profile", fiber.Map{"srn": "PES1UG22CS001"})
	assert.Equal(t, fiber.StatusForbidden, status)

	app = newApp(asRole(models.RoleStudent))
	app.Put("/me/profile", h.UpdateProfile)
	status, env := do(t, app, "PUT", "/me/profile", fiber.Map{"srn": "PES-1"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "srn must be 4-20 letters or digits", env.Error)

	status, env = do(t, app, "PUT", "/me/profile", fiber.Map{"joining_year": 2022})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "joining_year must be a two-digit year", env.Error)
}

func TestSeedKeywords(t *testing.T) {
	got := seedKeywords([]string{"Query Optimisation", "SQL", "the", "sql", "  "})
	assert.Equal(t, []string{"queri optimis", "sql"}, got)
}

func TestSubjectCreate_Validation(t *testing.T) {
	h := NewSubjectHandler(nil, routing.NewCorpus(nil))

	app := newApp(asRole(models.RoleTeacher))
	app.Post("/subjects", h.Create)
	status, _ := do(t, app, "POST", "/subjects", fiber.Map{"name": "OS", "code": "CS301"})
	assert.Equal(t, fiber.StatusForbidden, status)

	app = newApp(asRole(models.RoleAdmin))
	app.Post("/subjects", h.Create)

	tests := []struct {
		name string
		body fiber.Map
		want string
	}{
		{"missing name", fiber.Map{"code": "CS301"}, "Name is required"},
		{"bad code", fiber.Map{"name": "OS", "code": "C"}, "code must be 2-20 uppercase letters, digits or hyphens"},
		{"bad semester", fiber.Map{"name": "OS", "code": "cs301", "semester": 13}, "semester must be between 1 and 12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, app, "POST", "/subjects", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, tt.want, env.Error)
		})
	}
}

func uploadRequest(t *testing.T, path, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUpload_Validation(t *testing.T) {
	cfg := &config.Config{MaxUploadBytes: 16, Routing: config.DefaultRouting()}
	h := NewUploadHandler(nil, cfg, nil, extract.NewRegistry(), testRouter())
	path := "/subjects/" + uuid.NewString() + "/documents"

	app := newApp(asRole(models.RoleAdmin))
	app.Post("/subjects/:id/documents", h.Upload)

	status, env := send(t, app, uploadRequest(t, path, "", "", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, `multipart field "document" is required`, env.Error)

	status, env = send(t, app, uploadRequest(t, path, "document", "photo.png", []byte("png")))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.Error, "Unsupported file type")

	status, env = send(t, app, uploadRequest(t, path, "document", "notes.txt", bytes.Repeat([]byte("a"), 17)))
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, status)
	assert.Equal(t, "File exceeds the upload size limit", env.Error)

	status, env = send(t, app, uploadRequest(t, "/subjects/nope/documents", "document", "notes.txt", []byte("a")))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid subject id", env.Error)

	app = newApp(asRole(models.RoleTeacher))
	app.Post("/subjects/:id/documents", h.Upload)
	status, _ = send(t, app, uploadRequest(t, path, "document", "notes.txt", []byte("a")))
	assert.Equal(t, fiber.StatusForbidden, status)
}
