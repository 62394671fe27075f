package mailer

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Sender delivers a single plain-text message to one recipient. The core
// only needs this primitive; actual delivery is an external concern.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends mail through a plain SMTP relay with AUTH PLAIN.
type SMTPSender struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
}

// Send delivers the message through the configured relay.
func (s *SMTPSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.From, to, subject, body)

	host := s.Addr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}

	if err := smtp.SendMail(s.Addr, auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

// LogSender logs messages instead of delivering them. Used when no SMTP
// relay is configured, so development setups can read codes off the log.
type LogSender struct{}

func (LogSender) Send(to, subject, body string) error {
	slog.Info("mail delivery skipped (no SMTP relay configured)", "to", to, "subject", subject, "body", body)
	return nil
}
