package mailer

import (
	"bytes"
	"embed"
	"text/template"
	"time"

	htmltemplate "html/template"

	"github.com/go-mail/mail/v2"
)

//go:embed "templates"
var templateFS embed.FS

const sendAttempts = 3

// Mailer sends templated emails over SMTP.
type Mailer struct {
	dialer *mail.Dialer
	sender string
}

// Email is a rendered template ready to send.
type Email struct {
	Subject   string
	PlainBody string
	HTMLBody  string
}

func New(host string, port int, username, password, sender string) Mailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second

	return Mailer{
		dialer: dialer,
		sender: sender,
	}
}

// Render executes the subject, plainBody and htmlBody blocks of templateFile.
func Render(templateFile string, data any) (*Email, error) {
	tmpl, err := template.New("email").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return nil, err
	}

	subject := new(bytes.Buffer)
	if err = tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return nil, err
	}
	plainBody := new(bytes.Buffer)
	if err = tmpl.ExecuteTemplate(plainBody, "plainBody", data); err != nil {
		return nil, err
	}

	htmlTmpl, err := htmltemplate.New("email").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return nil, err
	}
	htmlBody := new(bytes.Buffer)
	if err = htmlTmpl.ExecuteTemplate(htmlBody, "htmlBody", data); err != nil {
		return nil, err
	}

	return &Email{Subject: subject.String(), PlainBody: plainBody.String(), HTMLBody: htmlBody.String()}, nil
}

// Send renders templateFile with data and delivers it to recipient,
// retrying a couple of times on SMTP failures.
func (m Mailer) Send(recipient, templateFile string, data any) error {
	email, err := Render(templateFile, data)
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", recipient)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.PlainBody)
	msg.AddAlternative("text/html", email.HTMLBody)

	for i := 1; i <= sendAttempts; i++ {
		err = m.dialer.DialAndSend(msg)
		if err == nil {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return err
}
