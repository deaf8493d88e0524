package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/clientcore/domain"
)

func TestNewWithWriter_Level(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		debugSeen bool
		infoSeen  bool
	}{
		{name: "debug", level: "debug", debugSeen: true, infoSeen: true},
		{name: "warn hides info", level: "WARN", debugSeen: false, infoSeen: false},
		{name: "unknown falls back to info", level: "loud", debugSeen: false, infoSeen: true},
		{name: "empty falls back to info", level: "", debugSeen: false, infoSeen: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(Config{Level: tt.level}, &buf)

			logger.Debug().Msg("debug-line")
			logger.Info().Msg("info-line")

			assert.Equal(t, tt.debugSeen, bytes.Contains(buf.Bytes(), []byte("debug-line")))
			assert.Equal(t, tt.infoSeen, bytes.Contains(buf.Bytes(), []byte("info-line")))
		})
	}
}

func TestAuditLogger_LogEvent(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(NewWithWriter(Config{Level: "info"}, &buf))

	event := domain.NewAuditEvent(domain.UserLoginFailureEvent).
		WithEmail("a@example.com").
		WithMetadata("method", "password").
		WithError(errors.New("invalid credentials"))
	audit.LogEvent(context.Background(), event)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "audit", line["component"])
	assert.Equal(t, "USER_LOGIN_FAILED", line["event_type"])
	assert.Equal(t, "a@example.com", line["email"])
	assert.Equal(t, "password", line["method"])
	assert.Equal(t, "invalid credentials", line["error"])
	assert.Equal(t, false, line["success"])
}

func TestAuditLogger_NilEvent(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(NewWithWriter(Config{}, &buf))

	audit.LogEvent(context.Background(), nil)
	assert.Zero(t, buf.Len())
}
