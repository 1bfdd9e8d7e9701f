package mailer

import (
	"bytes"
	"html/template"
)

type emailTemplate struct {
	subject string
	body    *template.Template
}

const layout = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2933;">
{{template "content" .}}
<p style="color:#7b8794;font-size:12px;">If you did not request this, you can ignore this email.</p>
</body></html>`

func mustTemplate(content string) *template.Template {
	t := template.Must(template.New("layout").Parse(layout))
	return template.Must(t.New("content").Parse(content))
}

var templates = map[string]emailTemplate{
	"verify_email": {
		subject: "Confirm your email address",
		body: mustTemplate(`<p>Welcome to CoachHub.</p>
<p><a href="{{.link}}" style="display:inline-block;padding:10px 20px;background-color:#2563eb;color:#fff;text-decoration:none;border-radius:5px;">Verify email</a></p>
<p>This link expires in 48 hours.</p>`),
	},
	"reset_password": {
		subject: "Reset your password",
		body: mustTemplate(`<p>We received a request to reset your CoachHub password.</p>
<p><a href="{{.link}}" style="display:inline-block;padding:10px 20px;background-color:#2563eb;color:#fff;text-decoration:none;border-radius:5px;">Choose a new password</a></p>
<p>This link expires in 1 hour.</p>`),
	},
}

// Render returns the subject and HTML body for an email type.
func Render(emailType string, data map[string]string) (subject, body string, err error) {
	t, ok := templates[emailType]
	if !ok {
		return "", "", ErrUnknownTemplate
	}
	var buf bytes.Buffer
	if err := t.body.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", "", err
	}
	return t.subject, buf.String(), nil
}
