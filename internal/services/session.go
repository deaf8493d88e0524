package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/you/clientcore/domain"
)

// NormalizeEmail is the canonical form used for lookups and OTP targets
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// issueAccess starts a new session for user: fresh jti and sid, access
// token only. Refresh tokens are a separate step.
func issueAccess(tokenSvc domain.TokenService, user *domain.User) (*domain.AuthResult, error) {
	result := &domain.AuthResult{
		User:      user,
		Subject:   user.ID.String(),
		RoleID:    user.RoleID,
		CompanyID: user.CompanyID,
	}
	if err := attachAccess(tokenSvc, result); err != nil {
		return nil, err
	}
	return result, nil
}

func attachAccess(tokenSvc domain.TokenService, result *domain.AuthResult) error {
	sid := uuid.NewString()
	token, err := tokenSvc.IssueAccess(result.Subject, result.CompanyID, result.RoleID, uuid.NewString(), sid)
	if err != nil {
		return fmt.Errorf("failed to generate access token: %w", err)
	}

	result.AccessToken = token
	result.SessionID = sid
	result.ExpiresIn = int64(tokenSvc.AccessTTL().Seconds())
	return nil
}

func audit(ctx context.Context, logger domain.AuditLogger, event *domain.AuditEvent) {
	if logger != nil {
		logger.LogEvent(ctx, event)
	}
}
