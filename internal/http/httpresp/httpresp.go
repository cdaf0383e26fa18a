// Package httpresp maps domainerr.Error values to the wire error shape the
// spec requires: {"detail": "<message>"} for plain failures, or
// {"detail": {"error": "<kind>", "message": "...", ...}} for failures that
// carry structured extras (e.g. the blocked-deletion practitioner list).
// Grounded on the teacher's pkg/utils/response.go helper-per-status
// convention, rebuilt around domainerr.Kind instead of pkg/errors.AppError
// since the spec's body shape is "detail", not "success/error".
package httpresp

import (
	"net/http"

	"clinic-scheduler-backend/internal/domain/domainerr"

	"github.com/gin-gonic/gin"
)

// JSON writes data as the 200-range success body.
func JSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// NoContent writes a 204 with no body.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Detail writes {"detail": message} at status.
func Detail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"detail": message})
}

// DetailStruct writes {"detail": extra} at status, for structured failure
// bodies (e.g. conflict responses that carry a retry hint).
func DetailStruct(c *gin.Context, status int, extra interface{}) {
	c.JSON(status, gin.H{"detail": extra})
}

// kindStatus maps a domainerr.Kind to its HTTP status per spec §6/§7.
func kindStatus(kind domainerr.Kind) int {
	switch {
	case kind == domainerr.KindUnauthenticated:
		return http.StatusUnauthorized
	case kind == domainerr.KindForbidden:
		return http.StatusForbidden
	case kind == domainerr.KindNotFound:
		return http.StatusNotFound
	case kind == domainerr.KindValidationError:
		return http.StatusBadRequest
	case kind == domainerr.KindAlreadyCancelled:
		return http.StatusBadRequest
	case kind == domainerr.KindNameConflict:
		return http.StatusConflict
	case kind == domainerr.KindSerializationFailure:
		return http.StatusInternalServerError
	case kind == domainerr.KindRateLimited:
		return http.StatusTooManyRequests
	case domainerr.IsKind(&domainerr.Error{Kind: kind}, domainerr.KindPolicyViolation):
		return http.StatusBadRequest
	case domainerr.IsKind(&domainerr.Error{Kind: kind}, domainerr.KindConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes the appropriate status and {"detail": ...} body for err. A
// *domainerr.Error (or a wrapped one) is mapped via its Kind; any other
// error is treated as an unexpected internal failure and its detail is
// never echoed back to the caller.
func Error(c *gin.Context, err error) {
	de, ok := domainerr.As(err)
	if !ok {
		c.Error(err)
		Detail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	status := kindStatus(de.Kind)
	if status == http.StatusInternalServerError {
		c.Error(err)
		Detail(c, status, "internal server error")
		return
	}
	Detail(c, status, de.Message)
}

// ErrorWithExtra writes err's status with additional structured fields
// merged into the detail object, e.g. {"detail": {"error": "...",
// "message": "...", "appointment_types": [...]}}.
func ErrorWithExtra(c *gin.Context, err error, extra gin.H) {
	de, ok := domainerr.As(err)
	if !ok {
		c.Error(err)
		Detail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	status := kindStatus(de.Kind)
	body := gin.H{"error": string(de.Kind), "message": de.Message}
	for k, v := range extra {
		body[k] = v
	}
	DetailStruct(c, status, body)
}
