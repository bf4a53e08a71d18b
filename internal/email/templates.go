package email

import (
	"fmt"
	"html"
	"strings"

	"querydesk/internal/config"
	"querydesk/internal/models"
)

// Templates renders notification emails.
type Templates struct {
	cfg *config.Config
}

// NewTemplates creates a new templates instance.
func NewTemplates(cfg *config.Config) *Templates {
	return &Templates{cfg: cfg}
}

func (t *Templates) siteTitle() string {
	if t.cfg.SMTPFromName != "" {
		return t.cfg.SMTPFromName
	}
	return "QueryDesk"
}

// baseHTML wraps content in the shared HTML layout.
func (t *Templates) baseHTML(title, content string) string {
	site := html.EscapeString(t.siteTitle())
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1f2937; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #0f766e; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .header h1 { margin: 0; font-size: 22px; }
        .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
        .footer { background: #f3f4f6; padding: 15px; text-align: center; font-size: 12px; color: #6b7280; border-radius: 0 0 8px 8px; border: 1px solid #e5e7eb; border-top: none; }
        .button { display: inline-block; background: #0f766e; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin: 10px 0; }
        .quote { background: white; border-left: 4px solid #0f766e; padding: 12px 15px; margin: 15px 0; white-space: pre-wrap; }
        .label { font-weight: 600; color: #374151; }
    </style>
</head>
<body>
    <div class="header"><h1>%s</h1></div>
    <div class="content">%s</div>
    <div class="footer">
        <p>This email was sent by %s</p>
        <p><a href="%s">%s</a></p>
    </div>
</body>
</html>`, html.EscapeString(title), site, content, site, t.cfg.BaseURL, t.cfg.BaseURL)
}

func (t *Templates) footerText() string {
	return fmt.Sprintf("\n--\n%s\n%s", t.siteTitle(), t.cfg.BaseURL)
}

func categoryLabel(category string) string {
	return strings.ReplaceAll(category, "_", " ")
}

// QueryAssigned is sent to the staff member a query was routed to. The student is
// named only when the query is not anonymous.
func (t *Templates) QueryAssigned(q *models.Query, from string) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("[%s] New %s query assigned to you", t.siteTitle(), categoryLabel(q.Category))
	if q.IsAnonymous || from == "" {
		from = "Anonymous student"
	}
	link := fmt.Sprintf("%s/queries/%s", t.cfg.BaseURL, q.ID)

	content := fmt.Sprintf(`
        <p>A query has been assigned to you.</p>
        <p><span class="label">Category:</span> %s</p>
        <p><span class="label">From:</span> %s</p>
        <div class="quote">%s</div>
        <p style="text-align: center;"><a href="%s" class="button">Respond</a></p>
    `,
		html.EscapeString(categoryLabel(q.Category)),
		html.EscapeString(from),
		html.EscapeString(q.Text),
		link,
	)
	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf("A query has been assigned to you.\n\nCategory: %s\nFrom: %s\n\n%s\n\nRespond at: %s\n%s",
		categoryLabel(q.Category), from, q.Text, link, t.footerText())
	return
}

// QueryAnswered is sent to the student when staff respond to their query.
func (t *Templates) QueryAnswered(q *models.Query, resp *models.QueryResponse, responder string) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("[%s] Your query has been answered", t.siteTitle())
	if responder == "" {
		responder = "Staff"
	}
	link := fmt.Sprintf("%s/queries/%s", t.cfg.BaseURL, q.ID)

	content := fmt.Sprintf(`
        <p>%s responded to your query.</p>
        <p><span class="label">Your query:</span></p>
        <div class="quote">%s</div>
        <p><span class="label">Response:</span></p>
        <div class="quote">%s</div>
        <p style="text-align: center;"><a href="%s" class="button">View query</a></p>
    `,
		html.EscapeString(responder),
		html.EscapeString(q.Text),
		html.EscapeString(resp.Text),
		link,
	)
	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf("%s responded to your query.\n\nYour query:\n%s\n\nResponse:\n%s\n\nView at: %s\n%s",
		responder, q.Text, resp.Text, link, t.footerText())
	return
}
