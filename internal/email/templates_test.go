package email

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"querydesk/internal/config"
	"querydesk/internal/models"
)

func testTemplates() *Templates {
	return NewTemplates(&config.Config{
		SMTPFromName: "Campus Desk",
		BaseURL:      "https://desk.example.edu",
	})
}

func TestTemplates_SiteTitleFallback(t *testing.T) {
	tmpl := NewTemplates(&config.Config{})
	if got := tmpl.siteTitle(); got != "QueryDesk" {
		t.Errorf("siteTitle() = %q, want QueryDesk", got)
	}
}

func TestTemplates_BaseHTML(t *testing.T) {
	out := testTemplates().baseHTML("Title", "<p>body</p>")

	for _, want := range []string{"<title>Title</title>", "Campus Desk", "<p>body</p>", "https://desk.example.edu"} {
		if !strings.Contains(out, want) {
			t.Errorf("baseHTML() missing %q", want)
		}
	}
}

func TestTemplates_BaseHTML_EscapesTitle(t *testing.T) {
	out := testTemplates().baseHTML("<script>alert(1)</script>", "")
	if strings.Contains(out, "<script>alert(1)</script>") {
		t.Error("baseHTML() should escape the title")
	}
}

func TestTemplates_QueryAssigned(t *testing.T) {
	q := &models.Query{
		ID:       uuid.New(),
		Text:     "My thread keeps deadlocking",
		Category: models.CategoryAcademics,
	}

	subject, htmlBody, textBody := testTemplates().QueryAssigned(q, "Asha Rao")

	if subject != "[Campus Desk] New academics query assigned to you" {
		t.Errorf("subject = %q", subject)
	}
	link := "https://desk.example.edu/queries/" + q.ID.String()
	for _, body := range []string{htmlBody, textBody} {
		if !strings.Contains(body, "My thread keeps deadlocking") {
			t.Error("body should contain the query text")
		}
		if !strings.Contains(body, "Asha Rao") {
			t.Error("body should name the student")
		}
		if !strings.Contains(body, link) {
			t.Error("body should link to the query")
		}
	}
}

func TestTemplates_QueryAssigned_Anonymous(t *testing.T) {
	q := &models.Query{
		ID:          uuid.New(),
		Text:        "Hostel wifi is down",
		Category:    models.CategoryStudentHelp,
		IsAnonymous: true,
	}

	subject, htmlBody, textBody := testTemplates().QueryAssigned(q, "Asha Rao")

	if !strings.Contains(subject, "student help") {
		t.Errorf("subject should use a readable category, got %q", subject)
	}
	for _, body := range []string{htmlBody, textBody} {
		if strings.Contains(body, "Asha Rao") {
			t.Error("anonymous query should not reveal the student")
		}
		if !strings.Contains(body, "Anonymous student") {
			t.Error("anonymous query should say Anonymous student")
		}
	}
}

func TestTemplates_QueryAnswered(t *testing.T) {
	q := &models.Query{ID: uuid.New(), Text: "When is the lab exam?"}
	resp := &models.QueryResponse{Text: "Next Monday at 10am."}

	subject, htmlBody, textBody := testTemplates().QueryAnswered(q, resp, "Dr. Mehta")

	if subject != "[Campus Desk] Your query has been answered" {
		t.Errorf("subject = %q", subject)
	}
	for _, body := range []string{htmlBody, textBody} {
		for _, want := range []string{"When is the lab exam?", "Next Monday at 10am.", "Dr. Mehta"} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q", want)
			}
		}
	}

	_, _, textBody = testTemplates().QueryAnswered(q, resp, "")
	if !strings.HasPrefix(textBody, "Staff responded") {
		t.Errorf("empty responder should fall back to Staff, got %q", textBody)
	}
}

func TestTemplates_HTMLEscaping(t *testing.T) {
	q := &models.Query{
		ID:       uuid.New(),
		Text:     `<img src=x onerror="alert(1)">`,
		Category: models.CategoryClubs,
	}

	_, htmlBody, textBody := testTemplates().QueryAssigned(q, "<b>Eve</b>")

	if strings.Contains(htmlBody, `<img src=x`) {
		t.Error("HTML body should escape the query text")
	}
	if strings.Contains(htmlBody, "<b>Eve</b>") {
		t.Error("HTML body should escape the student name")
	}
	if !strings.Contains(textBody, `<img src=x onerror="alert(1)">`) {
		t.Error("text body should keep the raw query text")
	}
}
