package domain

import (
	"errors"
	"testing"
	"time"
)

func TestOTPChallenge_Expired(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	challenge := &OTPChallenge{
		Target:       "user@example.com",
		CodeHash:     "$2a$04$hash",
		IssuedAt:     issued,
		ExpiresAt:    issued.Add(3 * time.Minute),
		AttemptsLeft: 3,
	}

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"right after issue", issued.Add(time.Second), false},
		{"exactly at expiry", issued.Add(3 * time.Minute), false},
		{"one second past expiry", issued.Add(3*time.Minute + time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := challenge.Expired(tt.now); got != tt.expected {
				t.Errorf("expected Expired=%v, got %v", tt.expected, got)
			}
		})
	}
}

func TestAuditEvent_Builders(t *testing.T) {
	event := NewAuditEvent(UserLoginFailureEvent).
		WithEmail("user@example.com").
		WithSubject("sub-1", "sid-1").
		WithMetadata("channel", "password").
		WithError(errors.New("invalid credentials"))

	if event.Success {
		t.Error("event with error should not be successful")
	}
	if event.ErrorMsg != "invalid credentials" {
		t.Errorf("unexpected error message %q", event.ErrorMsg)
	}
	if event.Email != "user@example.com" || event.Subject != "sub-1" || event.SessionID != "sid-1" {
		t.Errorf("builder fields not set: %+v", event)
	}
	if event.Metadata["channel"] != "password" {
		t.Errorf("metadata not set: %v", event.Metadata)
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should be populated")
	}
}
