package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsNotFound(err), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case domain.IsConflict(err),
		errors.Is(err, domain.ErrSubmissionInFlight),
		errors.Is(err, domain.ErrPaymentInProgress):
		return http.StatusConflict
	case domain.IsGateway(err):
		return http.StatusBadGateway
	case domain.IsNetwork(err), errors.Is(err, domain.ErrShuttingDown):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": "..."}. Internal errors are not echoed.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
