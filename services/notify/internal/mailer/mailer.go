package mailer

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/uep/eventcheckin/pkg/config"
	"github.com/uep/eventcheckin/pkg/logger"
)

type Service interface {
	SendRegistrationConfirmation(ctx context.Context, toEmail, eventName string, registeredAt time.Time) error
	SendAttendanceConfirmation(ctx context.Context, toEmail, eventName string, recordedAt time.Time) error
}

// Message is one rendered e-mail.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

type sender interface {
	send(ctx context.Context, toEmail string, msg Message) error
}

// templated renders the confirmation messages and hands them to a transport.
type templated struct {
	sender
}

func (t templated) SendRegistrationConfirmation(ctx context.Context, toEmail, eventName string, registeredAt time.Time) error {
	return t.send(ctx, toEmail, RegistrationMessage(eventName, registeredAt))
}

func (t templated) SendAttendanceConfirmation(ctx context.Context, toEmail, eventName string, recordedAt time.Time) error {
	return t.send(ctx, toEmail, AttendanceMessage(eventName, recordedAt))
}

func RegistrationMessage(eventName string, registeredAt time.Time) Message {
	when := registeredAt.UTC().Format(time.RFC1123)
	return Message{
		Subject: "You're registered: " + eventName,
		Text: fmt.Sprintf("Your registration for %s was received on %s.\n\n"+
			"Open the app at the event to show your check-in code.", eventName, when),
		HTML: fmt.Sprintf(`
		<h2>You're registered!</h2>
		<p>Your registration for <strong>%s</strong> was received on %s.</p>
		<p>Open the app at the event to show your check-in code.</p>
	`, html.EscapeString(eventName), when),
	}
}

func AttendanceMessage(eventName string, recordedAt time.Time) Message {
	when := recordedAt.UTC().Format(time.RFC1123)
	return Message{
		Subject: "Attendance recorded: " + eventName,
		Text:    fmt.Sprintf("Your attendance at %s was recorded on %s.", eventName, when),
		HTML: fmt.Sprintf(`
		<h2>Thanks for coming!</h2>
		<p>Your attendance at <strong>%s</strong> was recorded on %s.</p>
	`, html.EscapeString(eventName), when),
	}
}

// New picks the transport: dev logging, MailerSend when an API key is set,
// otherwise SMTP.
func New(cfg config.EmailConfig) Service {
	switch {
	case cfg.DevMode:
		logger.Info("Mailer running in dev mode")
		return NewDevMailer()
	case cfg.MailerSendKey != "":
		logger.Info("Using MailerSend mailer", "from", cfg.SMTPFrom)
		return NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.SMTPFrom)
	default:
		logger.Info("Using SMTP mailer", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
	}
}
