// Package middleware composes the HTTP handler stack: panic recovery,
// request logging and security headers with a per-request CSP nonce.
package middleware

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	vizerrors "github.com/conneroisu/techviz/internal/errors"
	"github.com/conneroisu/techviz/internal/logging"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain is an ordered middleware stack. The first middleware added is the
// outermost, so requests flow through the stack in insertion order.
type Chain struct {
	middlewares []Middleware
}

// NewChain returns a chain holding mws in order.
func NewChain(mws ...Middleware) *Chain {
	return &Chain{middlewares: append([]Middleware(nil), mws...)}
}

// Standard is the stack every techviz route is served behind.
func Standard(logger logging.Logger) *Chain {
	if logger == nil {
		logger = logging.Nop()
	}
	return NewChain(Recover(logger), Logging(logger), SecurityHeaders)
}

// Use appends mw as the new innermost middleware.
func (c *Chain) Use(mw Middleware) *Chain {
	c.middlewares = append(c.middlewares, mw)
	return c
}

// Len returns the number of middlewares.
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Then wraps h with the whole stack. The chain is not modified.
func (c *Chain) Then(h http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}
	return h
}

// Recover turns handler panics into 500 responses. http.ErrAbortHandler is
// re-raised so net/http can abort the connection.
func Recover(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					err := vizerrors.NewInternalError(vizerrors.ErrCodeInternalError, fmt.Sprintf("panic: %v", rec), nil)
					logger.Error(r.Context(), err, "Handler panicked",
						"method", r.Method, "path", r.URL.Path)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Logging logs every request at debug level.
func Logging(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug(r.Context(), "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
				"remote", r.RemoteAddr)
		})
	}
}

// statusRecorder captures the response status. Hijack is passed through so
// websocket upgrades work behind Logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
