package mailer

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

// DocumentReady describes a finished document for the notification mail
type DocumentReady struct {
	SessionID string
	DocType   string
	Title     string
	Path      string
}

type IEmailService interface {
	SendDocumentReady(doc DocumentReady) error
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer      sender
	senderEmail string
	senderName  string
	recipients  []string
}

func NewEmailService(host string, port int, username, password, senderName string, recipients []string) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: username,
		senderName:  senderName,
		recipients:  recipients,
	}
}

func (s *emailService) buildDocumentReady(doc DocumentReady) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", s.recipients...)
	m.SetHeader("Subject", fmt.Sprintf("Document ready: %s", doc.Title))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>%s</h2>
			<p>A new <b>%s</b> document has been generated.</p>
			<p>Session: <code>%s</code></p>
			<p>File: <code>%s</code></p>
		</div>
	`, html.EscapeString(doc.Title), html.EscapeString(doc.DocType),
		html.EscapeString(doc.SessionID), html.EscapeString(doc.Path))

	m.SetBody("text/html", body)
	return m
}

func (s *emailService) SendDocumentReady(doc DocumentReady) error {
	if len(s.recipients) == 0 {
		return nil
	}
	if err := s.dialer.DialAndSend(s.buildDocumentReady(doc)); err != nil {
		return fmt.Errorf("send document-ready mail for %s: %w", doc.SessionID, err)
	}
	return nil
}
