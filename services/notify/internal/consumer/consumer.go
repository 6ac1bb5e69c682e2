package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/uep/eventcheckin/pkg/events"
	"github.com/uep/eventcheckin/pkg/logger"
	"github.com/uep/eventcheckin/services/notify/internal/mailer"
)

// Observer counts handled messages by subject and result. May be nil.
type Observer interface {
	ObserveNotification(subject, result string)
}

// Consumer turns registration and attendance events into e-mails.
type Consumer struct {
	mailer   mailer.Service
	observer Observer
	timeout  time.Duration
}

func New(m mailer.Service, observer Observer) *Consumer {
	return &Consumer{mailer: m, observer: observer, timeout: 15 * time.Second}
}

// Start subscribes in queue group queue so replicas share the work.
func (c *Consumer) Start(sub events.Subscriber, queue string) error {
	if err := sub.QueueSubscribe(events.RegistrationCreated, queue, c.HandleRegistration); err != nil {
		return fmt.Errorf("subscribe %s: %w", events.RegistrationCreated, err)
	}
	if err := sub.QueueSubscribe(events.AttendanceRecorded, queue, c.HandleAttendance); err != nil {
		return fmt.Errorf("subscribe %s: %w", events.AttendanceRecorded, err)
	}
	return nil
}

func (c *Consumer) HandleRegistration(msg *events.Message) {
	var ev events.RegistrationCreatedEvent
	if err := msg.Decode(&ev); err != nil {
		logger.Error("Dropping malformed event", logger.Err(err), "message_id", msg.ID)
		c.observe(msg.Subject, "malformed")
		return
	}

	ctx, cancel := c.context(ev.EventID, ev.UserID)
	defer cancel()
	c.deliver(ctx, msg.Subject, ev.UserEmail, func(ctx context.Context) error {
		return c.mailer.SendRegistrationConfirmation(ctx, ev.UserEmail, ev.EventName, ev.RegisteredAt)
	})
}

func (c *Consumer) HandleAttendance(msg *events.Message) {
	var ev events.AttendanceRecordedEvent
	if err := msg.Decode(&ev); err != nil {
		logger.Error("Dropping malformed event", logger.Err(err), "message_id", msg.ID)
		c.observe(msg.Subject, "malformed")
		return
	}

	ctx, cancel := c.context(ev.EventID, ev.UserID)
	defer cancel()
	c.deliver(ctx, msg.Subject, ev.UserEmail, func(ctx context.Context) error {
		return c.mailer.SendAttendanceConfirmation(ctx, ev.UserEmail, ev.EventName, ev.RecordedAt)
	})
}

func (c *Consumer) context(eventID, userID string) (context.Context, context.CancelFunc) {
	ctx := context.WithValue(context.Background(), logger.ServiceKey, "notify")
	ctx = context.WithValue(ctx, logger.EventIDKey, eventID)
	ctx = context.WithValue(ctx, logger.UserIDKey, userID)
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Consumer) deliver(ctx context.Context, subject, to string, send func(context.Context) error) {
	if to == "" {
		logger.WarnContext(ctx, "No recipient address, skipping notification", "subject", subject)
		c.observe(subject, "skipped")
		return
	}
	if err := send(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to send notification", logger.Err(err), "subject", subject)
		c.observe(subject, "failed")
		return
	}
	logger.InfoContext(ctx, "Notification sent", "subject", subject)
	c.observe(subject, "sent")
}

func (c *Consumer) observe(subject, result string) {
	if c.observer != nil {
		c.observer.ObserveNotification(subject, result)
	}
}
