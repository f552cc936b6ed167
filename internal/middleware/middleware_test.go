package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/techviz/internal/logging"
)

func serve(h http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	chain := NewChain(mark("outer")).Use(mark("inner"))
	assert.Equal(t, 2, chain.Len())
	serve(chain.Then(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	})))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestRecover(t *testing.T) {
	var buf strings.Builder
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelDebug, Output: &buf})
	h := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	assert.Equal(t, http.StatusInternalServerError, serve(h).Code)
	assert.Contains(t, buf.String(), "ERR_INTERNAL")
	assert.Contains(t, buf.String(), "panic: boom")
}

func TestRecoverReraisesAbort(t *testing.T) {
	h := Recover(logging.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() { serve(h) })
}

func TestSecurityHeaders(t *testing.T) {
	var seen string
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = NonceFromContext(r.Context())
	}))

	rec := serve(h)
	require.NotEmpty(t, seen)
	assert.Equal(t, ContentSecurityPolicy(seen), rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	first := seen
	serve(h)
	assert.NotEqual(t, first, seen)
}

func TestContentSecurityPolicy(t *testing.T) {
	csp := ContentSecurityPolicy("abc")
	assert.Contains(t, csp, "script-src 'nonce-abc'")
	assert.Contains(t, csp, "style-src 'nonce-abc'")
	assert.Contains(t, csp, "connect-src 'self' ws: wss:")
	assert.NotContains(t, csp, "unsafe-inline")
}

func TestNonceFromEmptyContext(t *testing.T) {
	assert.Empty(t, NonceFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

type hijackableRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestLoggingPassesHijack(t *testing.T) {
	h := Logging(logging.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		_, _, err := hj.Hijack()
		require.NoError(t, err)
	}))

	rec := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder()}
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.True(t, rec.hijacked)
}

func TestLoggingRecordsStatus(t *testing.T) {
	var buf strings.Builder
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelDebug, Output: &buf})
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	assert.Equal(t, http.StatusTeapot, serve(h).Code)
	assert.Contains(t, buf.String(), "status=418")
}
