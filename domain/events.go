package domain

import (
	"context"
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Authentication events
	UserRegistrationEvent AuditEventType = "USER_REGISTERED"
	UserLoginEvent        AuditEventType = "USER_LOGIN"
	UserLoginFailureEvent AuditEventType = "USER_LOGIN_FAILED"
	TokenRefreshEvent     AuditEventType = "TOKEN_REFRESHED"

	// OTP events
	OTPRequestEvent AuditEventType = "OTP_REQUESTED"
	OTPVerifyEvent  AuditEventType = "OTP_VERIFIED"
	OTPFailureEvent AuditEventType = "OTP_VERIFICATION_FAILED"
)

// AuditEvent represents a business event that occurred in the system.
// It never carries secrets: no passwords, codes or hashes.
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	Subject   string                 `json:"subject,omitempty"`
	Email     string                 `json:"email,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// AuditLogger records audit events
type AuditLogger interface {
	LogEvent(ctx context.Context, event *AuditEvent)
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithError sets error information on the audit event
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithEmail sets the email field
func (e *AuditEvent) WithEmail(email string) *AuditEvent {
	e.Email = email
	return e
}

// WithSubject sets the subject and session fields
func (e *AuditEvent) WithSubject(subject, sessionID string) *AuditEvent {
	e.Subject = subject
	e.SessionID = sessionID
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}
