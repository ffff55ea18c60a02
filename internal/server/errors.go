package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tmacphee13/axoserve/internal/assetroot"
)

// Kind classifies request failures.
type Kind int

const (
	KindNotFound Kind = iota
	KindBadRequest
	KindMethodNotAllowed
	// KindMisconfigured covers a missing shell document or an unreadable
	// asset root. Details stay in the server log.
	KindMisconfigured
)

// Status maps a Kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindBadRequest:
		return http.StatusBadRequest
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Classify maps an error from the handlers or the asset root to a Kind.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, assetroot.ErrTraversal):
		return KindBadRequest
	case errors.Is(err, assetroot.ErrNotFound), errors.Is(err, errNotFound):
		return KindNotFound
	case errors.Is(err, errMethodNotAllowed):
		return KindMethodNotAllowed
	default:
		return KindMisconfigured
	}
}

// APIError is the body of every error response.
type APIError struct {
	Error string `json:"error"`
}

// fail writes a minimal error body. Server-side failures are logged with
// their cause; clients only ever see the status text.
func (s *Server) fail(c *gin.Context, err error) {
	kind := Classify(err)
	status := kind.Status()
	if kind == KindMisconfigured {
		s.logger.Printf("server: %s %s: rid=%s: %v", c.Request.Method, c.Request.URL.Path, c.GetString(requestIDKey), err)
	}
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(status, APIError{Error: http.StatusText(status)})
}
