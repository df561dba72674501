package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/wordflow/internal/apperr"
)

// ErrorBody is the standard error envelope for all API errors.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable kind next to the message.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// respondError maps an error chain onto the response envelope. The
// kind decides the status; unclassified errors are logged and surface
// as an opaque 500.
func respondError(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		log.Printf("Internal error (%s %s): %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, ErrorBody{Error: ErrorDetail{
			Kind:    string(apperr.Fatal),
			Message: "internal server error",
		}})
		return
	}
	if ae.Kind == apperr.Fatal {
		log.Printf("Fatal error (%s %s): %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(apperr.HTTPStatus(ae.Kind), ErrorBody{Error: ErrorDetail{
		Kind:    string(ae.Kind),
		Message: ae.Message,
		Details: ae.Details,
	}})
}

// respondBadRequest is the shortcut for request decoding failures.
func respondBadRequest(c *gin.Context, message string) {
	respondError(c, apperr.New(apperr.BadInput, message))
}

// parseIDParam extracts an unsigned integer id from the URL. On bad
// input it responds 400 and returns ok=false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// queryIntPtr reads an optional integer query parameter. Absence and
// garbage both come back nil so callers can tell "not sent" from an
// explicit zero.
func queryIntPtr(c *gin.Context, name string) *int {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

// queryInt reads an integer query parameter, falling back on absence
// or garbage.
func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
