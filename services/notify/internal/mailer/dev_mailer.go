package mailer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/uep/eventcheckin/pkg/logger"
)

type DevMailer struct {
	templated
}

func NewDevMailer() *DevMailer {
	return newDevMailer(os.Stdout)
}

func newDevMailer(w io.Writer) *DevMailer {
	return &DevMailer{templated{devSender{w: w}}}
}

type devSender struct {
	w io.Writer
}

func (d devSender) send(ctx context.Context, toEmail string, msg Message) error {
	logger.InfoContext(ctx, "[DEV MAIL]", "to", toEmail, "subject", msg.Subject)

	_, err := fmt.Fprintf(d.w, "\n"+
		"------------------------------------------------------------\n"+
		"To: %s\n"+
		"Subject: %s\n"+
		"\n"+
		"%s\n"+
		"------------------------------------------------------------\n\n",
		toEmail, msg.Subject, msg.Text)
	return err
}
