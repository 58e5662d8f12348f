package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/benithors/expirecheck/internal/config"
)

// Expiring describes a domain that crossed its warning threshold.
type Expiring struct {
	Domain        string
	Registrar     string
	Expires       time.Time
	DaysRemaining int
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email delivers one plain-text message per expiring domain.
type Email struct {
	cfg  config.SMTP
	send sendFunc
}

func NewEmail(cfg config.SMTP) *Email {
	return &Email{cfg: cfg, send: smtp.SendMail}
}

func (e *Email) Notify(ctx context.Context, n Expiring) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := e.cfg.Recipients()
	if len(to) == 0 {
		return errors.New("no smtp recipients")
	}

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Server)
	}

	msg := buildMessage(e.cfg.From, to, n)
	if err := e.send(e.cfg.Addr(), auth, e.cfg.From, to, msg); err != nil {
		return fmt.Errorf("smtp %s: %w", e.cfg.Addr(), err)
	}
	return nil
}

func Subject(n Expiring) string {
	if n.DaysRemaining < 0 {
		return fmt.Sprintf("The DNS Domain %s expired %d days ago", n.Domain, -n.DaysRemaining)
	}
	return fmt.Sprintf("The DNS Domain %s is set to expire in %d days", n.Domain, n.DaysRemaining)
}

func buildMessage(from string, to []string, n Expiring) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", Subject(n))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Time to renew %s\r\n", n.Domain)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Registrar: %s\r\n", n.Registrar)
	fmt.Fprintf(&b, "Expiration date: %s\r\n", n.Expires.UTC().Format(time.RFC3339))
	return []byte(b.String())
}
