package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log"
	texttemplate "text/template"
	"time"

	"natours/src/lib"
	"natours/src/models"
)

//go:embed templates
var templatesFS embed.FS

const (
	fromName = "Natours"

	tmplWelcome       = "welcome"
	tmplPasswordReset = "passwordReset"

	subjectWelcome       = "Welcome to the Natours!"
	subjectPasswordReset = "Your password reset token (valid for only %d minutes)"
)

// Mailer renders the transactional emails and hands them to a transport.
type Mailer struct {
	transport     lib.MailTransport
	from          string
	resetValidFor time.Duration
	html          map[string]*htmltemplate.Template
	text          map[string]*texttemplate.Template
}

type emailData struct {
	Subject   string
	FirstName string
	URL       string
	ValidFor  int
}

func New(transport lib.MailTransport, from string, resetValidFor time.Duration) (*Mailer, error) {
	m := &Mailer{
		transport:     transport,
		from:          from,
		resetValidFor: resetValidFor,
		html:          map[string]*htmltemplate.Template{},
		text:          map[string]*texttemplate.Template{},
	}
	for _, name := range []string{tmplWelcome, tmplPasswordReset} {
		h, err := htmltemplate.ParseFS(templatesFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s.html: %w", name, err)
		}
		t, err := texttemplate.ParseFS(templatesFS, "templates/"+name+".txt")
		if err != nil {
			return nil, fmt.Errorf("parse %s.txt: %w", name, err)
		}
		m.html[name] = h
		m.text[name] = t
	}
	return m, nil
}

func (m *Mailer) SendWelcome(ctx context.Context, user *models.User, url string) error {
	return m.send(ctx, user, tmplWelcome, emailData{Subject: subjectWelcome, URL: url})
}

func (m *Mailer) SendPasswordReset(ctx context.Context, user *models.User, url string) error {
	minutes := int(m.resetValidFor / time.Minute)
	return m.send(ctx, user, tmplPasswordReset, emailData{
		Subject:  fmt.Sprintf(subjectPasswordReset, minutes),
		URL:      url,
		ValidFor: minutes,
	})
}

// render returns the HTML and plain-text bodies of a template.
func (m *Mailer) render(name string, user *models.User, data emailData) (string, string, error) {
	data.FirstName = user.FirstName()
	var html, text bytes.Buffer
	if err := m.html[name].ExecuteTemplate(&html, "base", data); err != nil {
		return "", "", err
	}
	if err := m.text[name].Execute(&text, data); err != nil {
		return "", "", err
	}
	return html.String(), text.String(), nil
}

func (m *Mailer) send(ctx context.Context, user *models.User, name string, data emailData) error {
	html, text, err := m.render(name, user, data)
	if err != nil {
		log.Printf("[Mailer] Error rendering %s: %s\n", name, err.Error())
		return err
	}
	err = m.transport.Send(ctx, &lib.SendMailInput{
		From:     m.from,
		FromName: fromName,
		To:       []string{user.Email},
		Subject:  data.Subject,
		Body:     html,
		Text:     text,
		Html:     true,
	})
	if err != nil {
		log.Printf("[Mailer] Error sending %s to %s: %s\n", name, user.Email, err.Error())
		return err
	}
	return nil
}
