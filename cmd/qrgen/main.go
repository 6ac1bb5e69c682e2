// Command qrgen prints an attendance payload, ready to be rendered as a QR
// code by any generator.
//
//	qrgen -event 6f1c... [-user 9a0e...] [-ttl 30s] [-format json|kv] [-dialect canonical|legacy]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/uep/eventcheckin/pkg/config"
	"github.com/uep/eventcheckin/pkg/logger"
	"github.com/uep/eventcheckin/pkg/qrpayload"
)

func main() {
	cfg := config.Load()
	if err := run(os.Args[1:], os.Stdout, os.Stderr, cfg.QR, qrpayload.NewEncoder()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error("qrgen failed", logger.Err(err))
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer, qr config.QRConfig, enc *qrpayload.Encoder) error {
	fs := flag.NewFlagSet("qrgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	eventID := fs.String("event", "", "event id (required)")
	userID := fs.String("user", "", "student id; empty for an event-wide code")
	ttl := fs.Duration("ttl", 0, "validity window (default QR_DEFAULT_TTL, or QR_FIXED_TTL with -user)")
	formatFlag := fs.String("format", qr.Format, "payload format: json or kv")
	dialectFlag := fs.String("dialect", qr.Dialect, "field names: canonical or legacy")
	verbose := fs.Bool("v", false, "print issue and expiry times to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, ok := qrpayload.ParseFormat(*formatFlag)
	if !ok {
		return fmt.Errorf("unknown format %q", *formatFlag)
	}
	dialect, ok := qrpayload.ParseDialect(*dialectFlag)
	if !ok {
		return fmt.Errorf("unknown dialect %q", *dialectFlag)
	}

	d := *ttl
	if d == 0 {
		d = qr.DefaultTTL
		if *userID != "" {
			d = qr.FixedTTL
		}
	}
	if qr.MaxTTL > 0 && d > qr.MaxTTL {
		return fmt.Errorf("ttl %s exceeds maximum %s", d, qr.MaxTTL)
	}

	raw, p, err := enc.Encode(qrpayload.IssueRequest{EventID: *eventID, UserID: *userID, TTL: d}, format, dialect)
	if err != nil {
		return err
	}
	if *verbose {
		// stdout carries only the payload so it can be piped to a renderer.
		logger.New(stderr, "info").Info("Issued payload",
			"event_id", p.EventID,
			"user_id", p.UserID,
			"issued_at", p.IssuedAt.Format(time.RFC3339),
			"expires_at", p.ExpiresAt.Format(time.RFC3339),
		)
	}
	_, err = fmt.Fprintln(stdout, raw)
	return err
}
