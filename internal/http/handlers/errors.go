package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/you/clientcore/domain"
)

// CodeValidation is the error code for malformed request bodies
const CodeValidation = string(domain.KindValidation)

// APIError is the error body returned by every endpoint
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// FieldError describes one invalid request field
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnauthorized, domain.KindExpired, domain.KindInvalidToken:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindTooManyAttempts:
		return http.StatusTooManyRequests
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes err as an APIError. Unclassified errors are logged
// and reported without their text.
func AbortWithError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	message := err.Error()
	if kind == domain.KindInternal {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).
			Str("path", c.FullPath()).
			Msg("request failed")
		message = "internal server error"
	}

	c.AbortWithStatusJSON(StatusFor(kind), gin.H{
		"error": APIError{Code: string(kind), Message: message},
	})
}

// AbortWithBindingError reports a request body that failed to bind
func AbortWithBindingError(c *gin.Context, err error) {
	apiErr := APIError{Code: CodeValidation, Message: "request body is invalid"}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		apiErr.Details = details
	}

	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": apiErr})
}

var validatorOnce sync.Once

// ConfigureValidator registers the custom binding rules and makes binding
// errors report json field names. Call it before serving requests.
func ConfigureValidator() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("maxbytes", maxBytes)
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// maxBytes bounds a string by byte length; the built-in max counts runes
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}
