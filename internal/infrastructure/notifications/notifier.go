package notifications

import (
	"context"

	"github.com/you/clientcore/domain"
)

// SMSSender delivers text messages
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// EmailSender delivers HTML mail
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// Notifier implements domain.NotificationService by routing each channel
// to its own sender
type Notifier struct {
	sms  SMSSender
	mail EmailSender
}

// NewNotifier creates a notification service from channel senders
func NewNotifier(sms SMSSender, mail EmailSender) domain.NotificationService {
	return &Notifier{sms: sms, mail: mail}
}

// SendSMS implements domain.NotificationService
func (n *Notifier) SendSMS(ctx context.Context, to, message string) error {
	return n.sms.SendSMS(ctx, to, message)
}

// SendEmail implements domain.NotificationService
func (n *Notifier) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	return n.mail.SendEmail(ctx, to, subject, htmlBody)
}
