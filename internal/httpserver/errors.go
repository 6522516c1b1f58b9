package httpserver

import (
	"errors"
	"net/http"

	"farmsmart/internal/backend"
	"farmsmart/internal/domain"
	"farmsmart/internal/service/advisory"
	"farmsmart/internal/service/cart"
	"farmsmart/internal/service/checkout"
	"farmsmart/internal/service/session"
	"github.com/gin-gonic/gin"
)

// writeError maps service errors to responses. Validation failures carry the
// per-field messages.
func writeError(c *gin.Context, err error) {
	var fe domain.FieldErrors
	var be *backend.Error
	switch {
	case errors.As(err, &fe):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fe})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, session.ErrLoginInProgress),
		errors.Is(err, checkout.ErrSubmitInProgress),
		errors.Is(err, checkout.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrNothingToPay), errors.Is(err, cart.ErrInvalidItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, advisory.ErrAnalysisFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": advisory.AnalysisFailedMessage})
	case errors.As(err, &be):
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable", "operation": be.Op})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
