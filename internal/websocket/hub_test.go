package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/techviz/internal/engine"
	vizerrors "github.com/conneroisu/techviz/internal/errors"
	"github.com/conneroisu/techviz/internal/logging"
)

// lockedBuffer is a log sink safe to read while handlers write to it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(AllowList{AllowLoopback: true}, DefaultOptions(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		_ = hub.Shutdown(context.Background())
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
}

func readMessage(t *testing.T, conn *websocket.Conn) OutboundMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg OutboundMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func write(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestHubDispatchesInputToListeners(t *testing.T) {
	hub, srv := newTestHub(t)

	pointers := make(chan [2]float64, 4)
	resizes := make(chan [2]float64, 4)
	removePointer := hub.AddPointerListener(func(x, y float64) { pointers <- [2]float64{x, y} })
	removeResize := hub.AddResizeListener(func(w, h float64) { resizes <- [2]float64{w, h} })
	defer removeResize()

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	hello := readMessage(t, conn)
	assert.Equal(t, TypeHello, hello.Type)
	assert.NotEmpty(t, hello.Version)

	write(t, conn, InboundMessage{Type: TypePointer, X: 12, Y: 34})
	write(t, conn, InboundMessage{Type: TypeResize, Width: 800, Height: 600})

	select {
	case p := <-pointers:
		assert.Equal(t, [2]float64{12, 34}, p)
	case <-time.After(5 * time.Second):
		t.Fatal("pointer message not dispatched")
	}
	select {
	case r := <-resizes:
		assert.Equal(t, [2]float64{800, 600}, r)
	case <-time.After(5 * time.Second):
		t.Fatal("resize message not dispatched")
	}

	removePointer()
	write(t, conn, InboundMessage{Type: TypePointer, X: 1, Y: 1})
	// A resize sent afterwards proves the pointer message was processed.
	write(t, conn, InboundMessage{Type: TypeResize, Width: 10, Height: 10})
	select {
	case <-resizes:
	case <-time.After(5 * time.Second):
		t.Fatal("resize message not dispatched")
	}
	assert.Empty(t, pointers)
}

func TestHubBroadcastsFrames(t *testing.T) {
	hub, srv := newTestHub(t)

	conn, _, err := dial(t, srv, "http://localhost:3000")
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")
	assert.Equal(t, TypeHello, readMessage(t, conn).Type)

	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, 5*time.Second, 10*time.Millisecond)

	hub.PublishFrame(engine.Frame{Tick: 9, Width: 640, Height: 480})
	msg := readMessage(t, conn)
	assert.Equal(t, TypeFrame, msg.Type)
	require.NotNil(t, msg.Frame)
	assert.Equal(t, uint64(9), msg.Frame.Tick)

	// A late joiner gets the latest frame straight after the greeting.
	late, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer late.Close(websocket.StatusNormalClosure, "")
	assert.Equal(t, TypeHello, readMessage(t, late).Type)
	assert.Equal(t, uint64(9), readMessage(t, late).Frame.Tick)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	_, srv := newTestHub(t)

	_, resp, err := dial(t, srv, "https://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubLogsRejectedOrigin(t *testing.T) {
	var logs lockedBuffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelDebug, Output: &logs})
	hub := NewHub(AllowList{AllowLoopback: true}, DefaultOptions(), logger)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		_ = hub.Shutdown(context.Background())
		srv.Close()
	})

	_, resp, err := dial(t, srv, "https://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, logs.String(), vizerrors.ErrCodeInvalidOrigin)
	assert.Contains(t, logs.String(), "invalid origin: https://evil.example")
}

func TestHubShutdown(t *testing.T) {
	hub, srv := newTestHub(t)

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")
	// Keep reading so the client answers the server's close frame.
	go func() {
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
		}
	}()
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))
	assert.True(t, hub.IsShutdown())
	assert.Equal(t, 0, hub.ConnectedClients())

	// Publishing after shutdown is a no-op.
	hub.PublishFrame(engine.Frame{Tick: 1})

	_, resp, err := dial(t, srv, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    InboundMessage
		wantErr string
	}{
		{"pointer", `{"type":"pointer","x":1.5,"y":2}`, InboundMessage{Type: TypePointer, X: 1.5, Y: 2}, ""},
		{"resize", `{"type":"resize","width":1280,"height":720}`, InboundMessage{Type: TypeResize, Width: 1280, Height: 720}, ""},
		{"malformed", `{"type":`, InboundMessage{}, vizerrors.ErrCodeInvalidMessage},
		{"unknown type", `{"type":"click"}`, InboundMessage{}, vizerrors.ErrCodeInvalidMessage},
		{"zero resize", `{"type":"resize","width":0,"height":720}`, InboundMessage{}, vizerrors.ErrCodeInvalidGeometry},
		{"huge resize", `{"type":"resize","width":100000,"height":720}`, InboundMessage{}, vizerrors.ErrCodeInvalidGeometry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.data))
			if tt.wantErr != "" {
				var ve *vizerrors.VizError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantErr, ve.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllowList(t *testing.T) {
	tests := []struct {
		list   AllowList
		origin string
		want   bool
	}{
		{AllowList{AllowLoopback: true}, "http://localhost:8080", true},
		{AllowList{AllowLoopback: true}, "http://127.0.0.1", true},
		{AllowList{}, "http://localhost:8080", false},
		{AllowList{Origins: []string{"https://docs.example.com"}}, "https://DOCS.example.com", true},
		{AllowList{Origins: []string{"https://docs.example.com/"}}, "https://docs.example.com", true},
		{AllowList{Origins: []string{"https://docs.example.com"}}, "http://docs.example.com", false},
		{AllowList{Origins: []string{"*"}}, "https://anything.example", true},
		{AllowList{Origins: []string{"*"}}, "file:///etc/passwd", false},
		{AllowList{Origins: []string{"*"}}, "not a url", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.list.IsAllowedOrigin(tt.origin), "%+v %s", tt.list, tt.origin)
	}
}
