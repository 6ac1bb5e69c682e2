// Command scan is a terminal check-in station. Each line read from stdin is
// treated as one decoded QR frame and redeemed through the gateway.
//
//	SCANNER_TOKEN=... scan [-gateway http://localhost:8080] [-event 6f1c...]
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uep/eventcheckin/pkg/config"
	"github.com/uep/eventcheckin/pkg/logger"
	"github.com/uep/eventcheckin/pkg/scanner"
)

func main() {
	cfg := config.Load()

	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	gateway := fs.String("gateway", cfg.Scanner.GatewayURL, "gateway base URL")
	token := fs.String("token", cfg.Scanner.Token, "organizer access token")
	eventID := fs.String("event", cfg.Scanner.EventID, "event this station checks in for")
	_ = fs.Parse(os.Args[1:])

	if *token == "" {
		logger.Warn("No access token set; the gateway will reject scans")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scanner.New(
		newHTTPRedeemer(*gateway, *token, *eventID),
		scanner.WithPauses(cfg.Scanner.SuccessPause, cfg.Scanner.FailurePause),
		scanner.WithStatus(printStatus(os.Stdout)),
		scanner.WithErrorText(func(err error) string {
			logger.Error("Scan failed", logger.Err(err))
			return "Could not reach the server. Try again."
		}),
	)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	feed(ctx, s, os.Stdin)
	stop()
	<-done
}

// feed offers each stdin line to the scanner. Typed lines are deliberate,
// so it waits for the loop to accept them instead of dropping them the way
// a camera frame would be.
func feed(ctx context.Context, s *scanner.Scanner, r io.Reader) {
	lines := bufio.NewScanner(r)
	for lines.Scan() {
		if !offer(ctx, s, lines.Text()) {
			return
		}
	}
	if err := lines.Err(); err != nil {
		logger.Error("Failed to read input", logger.Err(err))
	}
	// An empty frame is ignored by the loop; once accepted, the previous
	// redemption and its pause are over.
	offer(ctx, s, "")
}

func offer(ctx context.Context, s *scanner.Scanner, line string) bool {
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for !s.Offer(line) {
		select {
		case <-ctx.Done():
			return false
		case <-tick.C:
		}
	}
	return true
}

func printStatus(w io.Writer) func(scanner.Status) {
	return func(st scanner.Status) {
		switch st.State {
		case scanner.StateReady:
			fmt.Fprintln(w, "ready")
		case scanner.StateProcessing:
			fmt.Fprintln(w, "processing...")
		default:
			fmt.Fprintf(w, "%s: %s\n", st.State, st.Message)
		}
	}
}
