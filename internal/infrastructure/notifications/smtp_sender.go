package notifications

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SMTPConfig describes the outgoing mail server
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPEmailSender sends HTML mail over SMTP. Port 465 uses implicit TLS,
// anything else negotiates STARTTLS when the server offers it.
type SMTPEmailSender struct {
	cfg    SMTPConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewSMTPEmailSender creates a mail sender. Without a host it drops
// messages with a warning.
func NewSMTPEmailSender(cfg SMTPConfig, logger zerolog.Logger) *SMTPEmailSender {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPEmailSender{
		cfg:    cfg,
		logger: logger.With().Str("component", "email").Logger(),
		now:    time.Now,
	}
}

// Configured reports whether messages are actually sent
func (e *SMTPEmailSender) Configured() bool {
	return e.cfg.Host != ""
}

// SendEmail sends an HTML message
func (e *SMTPEmailSender) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	if !e.Configured() {
		e.logger.Warn().Str("to", to).Str("subject", subject).Msg("email delivery not configured, message dropped")
		return nil
	}

	msg, err := e.buildMessage(to, subject, htmlBody)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	var conn net.Conn
	if e.cfg.Port == 465 {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: e.cfg.Host})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to smtp server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start smtp session: %w", err)
	}
	defer client.Close()

	if e.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: e.cfg.Host}); err != nil {
				return fmt.Errorf("failed to start tls: %w", err)
			}
		}
	}

	if e.cfg.Username != "" {
		auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(e.cfg.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT TO failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	return client.Quit()
}

func (e *SMTPEmailSender) buildMessage(to, subject, htmlBody string) ([]byte, error) {
	if _, err := mail.ParseAddress(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if strings.ContainsAny(subject, "\r\n") {
		return nil, fmt.Errorf("invalid subject")
	}

	from := (&mail.Address{Name: e.cfg.FromName, Address: e.cfg.From}).String()

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + e.now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String()), nil
}
