package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/you/clientcore/domain"
)

// ClaimsKey is the gin context key holding *domain.AccessClaims
const ClaimsKey = "access_claims"

// AuthHandlers handles authentication HTTP requests
type AuthHandlers struct {
	authSvc domain.AuthService
	otpSvc  domain.OTPService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, otpSvc domain.OTPService) *AuthHandlers {
	return &AuthHandlers{
		authSvc: authSvc,
		otpSvc:  otpSvc,
	}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email         string     `json:"email" binding:"required,email"`
	Username      string     `json:"username" binding:"required,min=3,max=100"`
	Password      string     `json:"password" binding:"required,min=8,maxbytes=72"`
	Name          string     `json:"name" binding:"required,max=100"`
	Phone         string     `json:"phone" binding:"omitempty,e164"`
	Address       string     `json:"address" binding:"max=255"`
	Country       string     `json:"country" binding:"max=50"`
	RoleInCompany string     `json:"role_in_company" binding:"max=50"`
	CompanyID     *uuid.UUID `json:"company_id"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// OTPRequest represents an OTP login request
type OTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// OTPVerifyRequest represents OTP verification request
type OTPVerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,numeric,max=12"`
}

// RefreshRequest represents token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse is returned by every endpoint that issues tokens
type TokenResponse struct {
	AccessToken      string     `json:"access_token"`
	RefreshToken     string     `json:"refresh_token,omitempty"`
	TokenType        string     `json:"token_type"`
	ExpiresIn        int64      `json:"expires_in"`
	RefreshExpiresAt *time.Time `json:"refresh_expires_at,omitempty"`
}

// Register handles user registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithBindingError(c, err)
		return
	}

	user, err := h.authSvc.Register(c.Request.Context(), domain.RegisterInput{
		Email:         req.Email,
		Username:      req.Username,
		Password:      req.Password,
		Name:          req.Name,
		Phone:         req.Phone,
		Address:       req.Address,
		Country:       req.Country,
		RoleInCompany: req.RoleInCompany,
		CompanyID:     req.CompanyID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"message": "User registered successfully",
			"user_id": user.ID,
		},
	})
}

// Login handles password login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithBindingError(c, err)
		return
	}

	result, err := h.authSvc.LoginWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	h.respondWithTokens(c, result, true)
}

// RequestOTP starts an OTP login
func (h *AuthHandlers) RequestOTP(c *gin.Context) {
	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithBindingError(c, err)
		return
	}

	dispatch, err := h.otpSvc.RequestOTP(c.Request.Context(), req.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":    "OTP sent",
			"channel":    dispatch.Channel,
			"expires_at": dispatch.ExpiresAt.UTC(),
		},
	})
}

// VerifyOTP completes an OTP login
func (h *AuthHandlers) VerifyOTP(c *gin.Context) {
	var req OTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithBindingError(c, err)
		return
	}

	result, err := h.otpSvc.VerifyOTP(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	h.respondWithTokens(c, result, true)
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithBindingError(c, err)
		return
	}

	result, err := h.authSvc.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	h.respondWithTokens(c, result, false)
}

// Me returns the claims of the presented access token
func (h *AuthHandlers) Me(c *gin.Context) {
	value, ok := c.Get(ClaimsKey)
	claims, _ := value.(*domain.AccessClaims)
	if !ok || claims == nil {
		AbortWithError(c, domain.ErrTokenInvalid)
		return
	}

	data := gin.H{
		"sub":        claims.Subject,
		"sid":        claims.SessionID,
		"jti":        claims.ID,
		"expires_at": claims.ExpiresAt.UTC(),
	}
	if claims.RoleID != nil {
		data["role_id"] = claims.RoleID
	}
	if claims.CompanyID != nil {
		data["company_id"] = claims.CompanyID
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}

// respondWithTokens writes the token body, issuing a refresh token first
// when the login flow asks for one.
func (h *AuthHandlers) respondWithTokens(c *gin.Context, result *domain.AuthResult, withRefresh bool) {
	if withRefresh {
		if err := h.authSvc.IssueRefreshToken(c.Request.Context(), result); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	resp := TokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    result.ExpiresIn,
	}
	if !result.RefreshExpiresAt.IsZero() {
		t := result.RefreshExpiresAt.UTC()
		resp.RefreshExpiresAt = &t
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
