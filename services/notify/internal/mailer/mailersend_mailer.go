package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/mailersend/mailersend-go"
)

var ErrNotConfigured = errors.New("mailersend not configured")

type MailerSendClient struct {
	templated
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	s := &mailerSendSender{
		from: mailersend.From{Name: fromName, Email: fromEmail},
	}
	if apiKey != "" && fromEmail != "" {
		s.client = mailersend.NewMailersend(apiKey)
	}
	return &MailerSendClient{templated{s}}
}

type mailerSendSender struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func (m *mailerSendSender) send(ctx context.Context, toEmail string, msg Message) error {
	if m.client == nil {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	email := m.client.Email.NewMessage()
	email.SetFrom(m.from)
	email.SetRecipients([]mailersend.Recipient{{Email: toEmail}})
	email.SetSubject(msg.Subject)
	email.SetText(msg.Text)
	email.SetHTML(msg.HTML)

	_, err := m.client.Email.Send(ctx, email)
	return err
}
