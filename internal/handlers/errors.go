package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"accounthub/api/internal/service"
)

// ValidationError carries a caller-facing message naming the offending
// field.
type ValidationError struct {
	msg string
}

func (e ValidationError) Error() string { return e.msg }

func validationError(msg string) error { return ValidationError{msg: msg} }

// respondError is the single funnel mapping domain errors to an HTTP
// status and a {"message": ...} body. Anything unrecognized is logged
// and reported as a 500.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	var verr ValidationError

	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.As(err, &verr):
		status, message = http.StatusBadRequest, verr.Error()
	case errors.Is(err, service.ErrEmailTaken):
		status, message = http.StatusConflict, "Email in use"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Email or password is wrong"
	case errors.Is(err, service.ErrEmailNotVerified):
		status, message = http.StatusUnauthorized, "Email not verified"
	case errors.Is(err, service.ErrUnknownEmail):
		status, message = http.StatusUnauthorized, "User not found"
	case errors.Is(err, service.ErrAlreadyVerified):
		status, message = http.StatusBadRequest, "Verification has already been passed"
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrInvalidSubscription):
		status, message = http.StatusBadRequest, "subscription must be one of: starter, pro, business"
	case errors.Is(err, service.ErrDelivery):
		status, message = http.StatusInternalServerError, "Failed to send verification email"
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	c.AbortWithStatusJSON(status, gin.H{"message": message})
}
