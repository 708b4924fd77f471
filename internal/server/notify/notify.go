// Package notify delivers registration one-time codes.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/smtp"
	"strings"
	"sync"
	"time"
)

// Sender delivers a one-time code to an address.
type Sender interface {
	SendCode(ctx context.Context, to, code string, ttl time.Duration) error
}

func body(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your docseal verification code is %s. It expires in %s.", code, ttl.Round(time.Second))
}

// ConsoleSender writes codes to w instead of delivering them. It is meant
// for development setups without a mail relay.
type ConsoleSender struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleSender(w io.Writer) *ConsoleSender {
	return &ConsoleSender{w: w}
}

func (s *ConsoleSender) SendCode(ctx context.Context, to, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "[outbox] to=%s %s\n", to, body(code, ttl))
	return err
}

// SMTPSender delivers codes through an SMTP relay using PLAIN auth when a
// user is configured.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth

	// sendMail is a seam for tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(addr, user, password, from string) *SMTPSender {
	var auth smtp.Auth
	if user != "" {
		host, _, _ := strings.Cut(addr, ":")
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPSender{addr: addr, from: from, auth: auth, sendMail: smtp.SendMail}
}

func (s *SMTPSender) SendCode(ctx context.Context, to, code string, ttl time.Duration) error {
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient address")
	}

	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: Your docseal verification code",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body(code, ttl),
		"",
	}, "\r\n")

	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
