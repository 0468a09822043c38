package core

import "net/mail"

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		// simple text/plain content; templated HTML mailers are the
		// frontend's concern and deliberately not rendered here.
		TextContent string
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently.
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To)+len(m.Cc)+len(m.Bcc) > 0 }

func (m *EmailMessage) HasContent() bool { return m.TextContent != "" }
