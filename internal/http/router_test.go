package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/clientcore/internal/http/handlers"
	"github.com/you/clientcore/internal/http/middleware"
	"github.com/you/clientcore/internal/infrastructure/auth"
	"github.com/you/clientcore/internal/infrastructure/database"
	"github.com/you/clientcore/internal/infrastructure/repositories"
	"github.com/you/clientcore/internal/mocks"
	"github.com/you/clientcore/internal/services"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	router *gin.Engine
	mail   *mocks.MockNotificationService
}

// newTestServer wires the real services over sqlite and the in-memory
// challenge store; only outbound delivery is mocked.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store := repositories.NewMemoryOTPChallengeStore(time.Minute)
	t.Cleanup(func() { store.Close() })

	userRepo := repositories.NewUserRepository(db)
	passwordSvc := auth.NewPasswordService(bcrypt.MinCost)
	tokenSvc := auth.NewJWTService("router-test-secret", "client-core", "client-web", 30*time.Minute)
	mail := mocks.NewMockNotificationService()
	auditLogger := mocks.NewMockAuditLogger()

	authSvc := services.NewAuthService(userRepo, passwordSvc, tokenSvc, auditLogger, zerolog.Nop(), services.AuthConfig{
		RefreshTTL:    24 * time.Hour,
		RotateRefresh: true,
	})
	otpSvc := services.NewOTPService(userRepo, store, passwordSvc, tokenSvc, mail, auditLogger, zerolog.Nop(), services.OTPConfig{
		Length:      6,
		TTL:         3 * time.Minute,
		MaxAttempts: 3,
	})

	router := BuildRouter("/api/v1", handlers.NewAuthHandlers(authSvc, otpSvc), middleware.NewAuthMW(tokenSvc), zerolog.Nop())
	return &testServer{router: router, mail: mail}
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func errorCode(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

func TestRouter_PasswordLoginAndRefresh(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"email":    "Jane@Example.com",
		"username": "jane",
		"password": "correct horse",
		"name":     "Jane",
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"email":    "jane@example.com",
		"username": "jane2",
		"password": "correct horse",
		"name":     "Jane",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	status, body = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "jane@example.com", "password": "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "jane@example.com", "password": "correct horse",
	})
	require.Equal(t, http.StatusOK, status, body)
	tokens := data(t, body)
	access, _ := tokens["access_token"].(string)
	refresh, _ := tokens["refresh_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.Equal(t, float64(1800), tokens["expires_in"])

	status, body = s.do(t, http.MethodGet, "/api/v1/auth/me", access, nil)
	require.Equal(t, http.StatusOK, status, body)
	me := data(t, body)
	assert.NotEmpty(t, me["sub"])
	assert.NotEmpty(t, me["sid"])

	// A refresh token is not an access token.
	status, body = s.do(t, http.MethodGet, "/api/v1/auth/me", refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN", errorCode(body))

	status, body = s.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, status, body)
	rotated := data(t, body)
	assert.NotEqual(t, refresh, rotated["refresh_token"])
	assert.NotEqual(t, access, rotated["access_token"])

	// Access tokens cannot be used to refresh.
	status, body = s.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": access})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN", errorCode(body))
}

var sixDigits = regexp.MustCompile(`\b[0-9]{6}\b`)

func TestRouter_OTPLogin(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"email":    "otp@example.com",
		"username": "otpuser",
		"password": "correct horse",
		"name":     "Otp User",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := s.do(t, http.MethodPost, "/api/v1/auth/login/otp/request", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = s.do(t, http.MethodPost, "/api/v1/auth/login/otp/request", "", map[string]string{"email": "otp@example.com"})
	require.Equal(t, http.StatusOK, status, body)

	mail, ok := s.mail.LastEmail()
	require.True(t, ok)
	code := sixDigits.FindString(mail.Body)
	require.NotEmpty(t, code)

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), code, "the code is only ever delivered out of band")

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	status, body = s.do(t, http.MethodPost, "/api/v1/auth/login/otp/verify", "", map[string]string{"email": "otp@example.com", "code": wrong})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = s.do(t, http.MethodPost, "/api/v1/auth/login/otp/verify", "", map[string]string{"email": "otp@example.com", "code": code})
	require.Equal(t, http.StatusOK, status, body)
	tokens := data(t, body)
	assert.NotEmpty(t, tokens["access_token"])
	assert.NotEmpty(t, tokens["refresh_token"])

	status, body = s.do(t, http.MethodPost, "/api/v1/auth/login/otp/verify", "", map[string]string{"email": "otp@example.com", "code": code})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestRouter_HealthAndNoRoute(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])

	status, body = s.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestRouter_ExpiredAccessTokenIsUnauthorized(t *testing.T) {
	s := newTestServer(t)

	issuedAt := time.Now().Add(-2 * time.Hour)
	stale := auth.NewJWTService("router-test-secret", "client-core", "client-web", 30*time.Minute,
		auth.WithClock(func() time.Time { return issuedAt }))
	token, err := stale.IssueAccess("subject-1", nil, nil, "jti-1", "sid-1")
	require.NoError(t, err)

	status, body := s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestRouter_RegisterRejectsOversizedMultibytePassword(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "multi@example.com",
		"username": "multi",
		"password": strings.Repeat("é", 40),
		"name":     "Multi",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, handlers.CodeValidation, errorCode(body))
}
