package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/fletchck/fletchck/internal/domain"
)

// EmailSender submits a notification message over implicit-TLS SMTP.
type EmailSender struct {
	Hostname   string
	Port       int
	Username   string
	Password   string
	Sender     string
	Recipients []string
	Subject    string
}

func NewEmailSender(opts domain.Options) *EmailSender {
	return &EmailSender{
		Hostname:   opts.Str("hostname", ""),
		Port:       opts.Int("port", 465),
		Username:   opts.Str("username", ""),
		Password:   opts.Str("password", ""),
		Sender:     opts.Str("sender", ""),
		Recipients: opts.StrList("recipients"),
		Subject:    opts.Str("subject", "fletchck alert"),
	}
}

func (s *EmailSender) Send(ctx context.Context, ev Event) error {
	if s.Hostname == "" || s.Sender == "" || len(s.Recipients) == 0 {
		return errors.New("email action not configured")
	}
	addr := fmt.Sprintf("%s:%d", s.Hostname, s.Port)

	td := tls.Dialer{Config: &tls.Config{ServerName: s.Hostname}}
	conn, err := td.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("email dial: %w", err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}

	c, err := smtp.NewClient(conn, s.Hostname)
	if err != nil {
		return fmt.Errorf("email client: %w", err)
	}
	defer c.Close()
	if s.Username != "" {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Hostname)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("email auth: %w", err)
		}
	}
	if err := c.Mail(s.Sender); err != nil {
		return fmt.Errorf("email from: %w", err)
	}
	for _, rcpt := range s.Recipients {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("email rcpt %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("email data: %w", err)
	}
	if _, err := w.Write([]byte(s.message(ev))); err != nil {
		return fmt.Errorf("email write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("email send: %w", err)
	}
	return c.Quit()
}

func (s *EmailSender) message(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.Sender)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s: %s %s\r\n", s.Subject, ev.Check, strings.ToUpper(string(ev.Status)))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Check %s is %s at %s\r\n\r\n%s\r\n",
		ev.Check, ev.Status, ev.Time.Format("02 Jan 2006 15:04 MST"), ev.Message)
	return b.String()
}
