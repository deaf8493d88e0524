package mocks

import (
	"context"
	"sync"

	"github.com/you/clientcore/domain"
)

// SentMessage records a message handed to MockNotificationService
type SentMessage struct {
	To      string
	Subject string
	Body    string
}

// MockNotificationService implements domain.NotificationService interface for testing
type MockNotificationService struct {
	SendSMSFunc   func(ctx context.Context, to, message string) error
	SendEmailFunc func(ctx context.Context, to, subject, htmlBody string) error

	mu     sync.Mutex
	Emails []SentMessage
	SMS    []SentMessage
}

// NewMockNotificationService creates a new MockNotificationService with default behaviors
func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

// SendSMS sends an SMS message
func (m *MockNotificationService) SendSMS(ctx context.Context, to, message string) error {
	m.mu.Lock()
	m.SMS = append(m.SMS, SentMessage{To: to, Body: message})
	m.mu.Unlock()
	if m.SendSMSFunc != nil {
		return m.SendSMSFunc(ctx, to, message)
	}
	// Default behavior: success (no actual SMS sent in tests)
	return nil
}

// SendEmail sends an email message
func (m *MockNotificationService) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	m.Emails = append(m.Emails, SentMessage{To: to, Subject: subject, Body: htmlBody})
	m.mu.Unlock()
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, to, subject, htmlBody)
	}
	// Default behavior: success (no actual email sent in tests)
	return nil
}

// LastEmail returns the most recent email, if any
func (m *MockNotificationService) LastEmail() (SentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Emails) == 0 {
		return SentMessage{}, false
	}
	return m.Emails[len(m.Emails)-1], true
}

// Compile-time interface compliance verification
var _ domain.NotificationService = (*MockNotificationService)(nil)
