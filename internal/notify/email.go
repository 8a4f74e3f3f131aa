package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"stockwatch/internal/config"
	"stockwatch/internal/errors"
	"stockwatch/internal/models"
)

// EmailNotifier sends alert emails over SMTP.
type EmailNotifier struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
	to       string
	enabled  bool
}

// NewEmailNotifier creates an email channel from configuration. The channel
// stays disabled when the host or addresses are missing.
func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		smtpHost: cfg.SMTPHost,
		smtpPort: cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		to:       cfg.To,
		enabled:  cfg.Enabled && cfg.SMTPHost != "" && cfg.From != "" && cfg.To != "",
	}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) IsEnabled() bool { return e.enabled }

// Send delivers one alert email.
func (e *EmailNotifier) Send(ctx context.Context, rec models.AlertRecord) error {
	if !e.enabled {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return errors.NewDeliveryError("email", rec.Symbol, err)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		e.from, e.to, subjectFor(rec), bodyFor(rec))

	addr := fmt.Sprintf("%s:%d", e.smtpHost, e.smtpPort)

	var auth smtp.Auth
	if e.username != "" && e.password != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.smtpHost)
	}

	var err error
	if e.smtpPort == 465 {
		err = e.sendWithTLS(addr, auth, msg)
	} else {
		// STARTTLS for 587, plain otherwise.
		err = smtp.SendMail(addr, auth, e.from, []string{e.to}, []byte(msg))
	}
	if err != nil {
		return errors.NewDeliveryError("email", rec.Symbol, err)
	}
	return nil
}

// sendWithTLS sends over implicit TLS (port 465).
func (e *EmailNotifier) sendWithTLS(addr string, auth smtp.Auth, msg string) error {
	tlsConfig := &tls.Config{
		ServerName: e.smtpHost,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.smtpHost)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth failed: %w", err)
		}
	}

	if err := client.Mail(e.from); err != nil {
		return fmt.Errorf("SMTP MAIL command failed: %w", err)
	}
	if err := client.Rcpt(e.to); err != nil {
		return fmt.Errorf("SMTP RCPT command failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA command failed: %w", err)
	}
	if _, err = w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}
