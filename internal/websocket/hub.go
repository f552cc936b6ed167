// Package websocket streams simulation frames to browsers and feeds their
// pointer and resize events back to the engine.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"

	"github.com/conneroisu/techviz/internal/engine"
	vizerrors "github.com/conneroisu/techviz/internal/errors"
	"github.com/conneroisu/techviz/internal/logging"
	"github.com/conneroisu/techviz/internal/version"
)

// OriginValidator decides whether a browser origin may connect.
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}

// Options tunes the hub.
type Options struct {
	// SendBuffer is the per-client queue of outbound frames. A client whose
	// queue is full is disconnected.
	SendBuffer int

	// InputRate and InputBurst limit inbound messages per client.
	InputRate  rate.Limit
	InputBurst int

	WriteTimeout time.Duration
	// PingInterval is how often clients are pinged; a failed ping
	// disconnects the client.
	PingInterval time.Duration
}

// DefaultOptions returns the hub defaults.
func DefaultOptions() Options {
	return Options{
		SendBuffer:   64,
		InputRate:    120,
		InputBurst:   60,
		WriteTimeout: 10 * time.Second,
		PingInterval: 54 * time.Second,
	}
}

// Client is one connected browser.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	addr    string
}

// queue adds message to the client's send buffer unless it is full.
func (c *Client) queue(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// Hub owns every client connection. Registration, removal and broadcast
// go through a single hub goroutine.
type Hub struct {
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *websocket.Conn

	listenerMu       sync.RWMutex
	nextListener     int
	pointerListeners map[int]func(x, y float64)
	resizeListeners  map[int]func(w, h float64)

	latestMu sync.RWMutex
	latest   []byte

	originValidator OriginValidator
	opts            Options
	logger          logging.Logger
	errs            *vizerrors.ErrorHandler

	ctx          context.Context
	cancel       context.CancelFunc
	hubDone      chan struct{}
	shutdownOnce sync.Once
	isShutdown   atomic.Bool
}

// NewHub creates a hub and starts its goroutine.
func NewHub(originValidator OriginValidator, opts Options, logger logging.Logger) *Hub {
	if originValidator == nil {
		panic("websocket: originValidator cannot be nil")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.SendBuffer <= 0 {
		opts = DefaultOptions()
	}

	logger = logger.WithComponent("websocket")
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:          make(map[*websocket.Conn]*Client),
		broadcast:        make(chan []byte, 16),
		register:         make(chan *Client, 32),
		unregister:       make(chan *websocket.Conn, 32),
		pointerListeners: make(map[int]func(x, y float64)),
		resizeListeners:  make(map[int]func(w, h float64)),
		originValidator:  originValidator,
		opts:             opts,
		logger:           logger,
		errs:             vizerrors.NewErrorHandler(logger),
		ctx:              ctx,
		cancel:           cancel,
		hubDone:          make(chan struct{}),
	}

	go h.run()

	return h
}

// AddPointerListener registers fn for pointer messages.
func (h *Hub) AddPointerListener(fn func(x, y float64)) func() {
	h.listenerMu.Lock()
	defer h.listenerMu.Unlock()
	id := h.nextListener
	h.nextListener++
	h.pointerListeners[id] = fn
	return func() {
		h.listenerMu.Lock()
		defer h.listenerMu.Unlock()
		delete(h.pointerListeners, id)
	}
}

// AddResizeListener registers fn for resize messages.
func (h *Hub) AddResizeListener(fn func(w, h float64)) func() {
	h.listenerMu.Lock()
	defer h.listenerMu.Unlock()
	id := h.nextListener
	h.nextListener++
	h.resizeListeners[id] = fn
	return func() {
		h.listenerMu.Lock()
		defer h.listenerMu.Unlock()
		delete(h.resizeListeners, id)
	}
}

// PublishFrame queues a frame for every client. Frames are dropped rather
// than queued when the hub is behind; the next frame supersedes them.
func (h *Hub) PublishFrame(frame engine.Frame) {
	if h.isShutdown.Load() {
		return
	}
	data, err := json.Marshal(OutboundMessage{Type: TypeFrame, Frame: &frame})
	if err != nil {
		h.logger.Error(h.ctx, err, "Failed to marshal frame", "tick", frame.Tick)
		return
	}

	h.latestMu.Lock()
	h.latest = data
	h.latestMu.Unlock()

	select {
	case h.broadcast <- data:
	case <-h.ctx.Done():
	default:
		h.logger.Debug(h.ctx, "Broadcast channel full, dropping frame", "tick", frame.Tick)
	}
}

// HandleWebSocket upgrades the request and serves the client until it
// disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.isShutdown.Load() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	origin := r.Header.Get("Origin")
	if origin != "" && !h.originValidator.IsAllowedOrigin(origin) {
		h.logger.Warn(r.Context(), vizerrors.ErrInvalidOrigin(origin).WithContext("remote", r.RemoteAddr),
			"WebSocket connection rejected", "origin", origin, "remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origins were checked above.
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}
	conn.SetReadLimit(4096)

	client := &Client{
		conn:    conn,
		send:    make(chan []byte, h.opts.SendBuffer),
		limiter: rate.NewLimiter(h.opts.InputRate, h.opts.InputBurst),
		addr:    r.RemoteAddr,
	}

	if hello, err := json.Marshal(OutboundMessage{Type: TypeHello, Version: version.GetShortVersion()}); err == nil {
		client.queue(hello)
	}
	h.latestMu.RLock()
	if h.latest != nil {
		client.queue(h.latest)
	}
	h.latestMu.RUnlock()

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusServiceRestart, "Server shutting down")
		return
	}

	h.serveClient(client)
}

func (h *Hub) run() {
	defer close(h.hubDone)
	for {
		select {
		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client.conn] = client
			n := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Info(h.ctx, "WebSocket client connected", "remote", client.addr, "clients", n)

		case conn := <-h.unregister:
			h.removeClient(conn)

		case message := <-h.broadcast:
			h.broadcastToClients(message)

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.clientsMutex.Lock()
	client, exists := h.clients[conn]
	if exists {
		delete(h.clients, conn)
		close(client.send)
	}
	n := len(h.clients)
	h.clientsMutex.Unlock()

	if exists {
		go func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
		h.logger.Info(h.ctx, "WebSocket client disconnected", "remote", client.addr, "clients", n)
	}
}

func (h *Hub) broadcastToClients(message []byte) {
	h.clientsMutex.RLock()
	var slow []*websocket.Conn
	for conn, client := range h.clients {
		if !client.queue(message) {
			slow = append(slow, conn)
		}
	}
	h.clientsMutex.RUnlock()

	for _, conn := range slow {
		h.logger.Warn(h.ctx, nil, "WebSocket client too slow, disconnecting")
		h.removeClient(conn)
	}
}

// serveClient runs the write pump in the background and the read pump in
// the calling goroutine.
func (h *Hub) serveClient(client *Client) {
	go h.writePump(client)
	h.readPump(client)

	select {
	case h.unregister <- client.conn:
	case <-h.ctx.Done():
	}
}

func (h *Hub) readPump(client *Client) {
	for {
		_, data, err := client.conn.Read(h.ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure &&
				websocket.CloseStatus(err) != websocket.StatusGoingAway && h.ctx.Err() == nil {
				h.logger.Debug(h.ctx, "WebSocket read ended", "remote", client.addr, "error", err.Error())
			}
			return
		}

		if !client.limiter.Allow() {
			continue
		}

		msg, err := DecodeInbound(data)
		if err != nil {
			var ve *vizerrors.VizError
			if errors.As(err, &ve) {
				err = ve.WithContext("remote", client.addr)
			}
			h.errs.Handle(h.ctx, err)
			continue
		}
		h.dispatch(msg)
	}
}

func (h *Hub) dispatch(msg InboundMessage) {
	h.listenerMu.RLock()
	defer h.listenerMu.RUnlock()
	switch msg.Type {
	case TypePointer:
		for _, fn := range h.pointerListeners {
			fn(msg.X, msg.Y)
		}
	case TypeResize:
		for _, fn := range h.resizeListeners {
			fn(msg.Width, msg.Height)
		}
	}
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(h.ctx, h.opts.WriteTimeout)
			err := client.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				_ = client.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(h.ctx, h.opts.WriteTimeout)
			err := client.conn.Ping(ctx)
			cancel()
			if err != nil {
				_ = client.conn.Close(websocket.StatusGoingAway, "ping failed")
				return
			}

		case <-h.ctx.Done():
			return
		}
	}
}

// ConnectedClients returns the number of connected clients.
func (h *Hub) ConnectedClients() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Shutdown closes every client and stops the hub. It is safe to call more
// than once.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(func() {
		h.isShutdown.Store(true)
		h.cancel()

		select {
		case <-h.hubDone:
		case <-ctx.Done():
		}

		h.clientsMutex.Lock()
		clients := h.clients
		h.clients = make(map[*websocket.Conn]*Client)
		h.clientsMutex.Unlock()

		var wg sync.WaitGroup
		for conn, client := range clients {
			close(client.send)
			wg.Add(1)
			go func(conn *websocket.Conn) {
				defer wg.Done()
				_ = conn.Close(websocket.StatusGoingAway, "Server shutdown")
			}(conn)
		}
		closed := make(chan struct{})
		go func() {
			wg.Wait()
			close(closed)
		}()
		select {
		case <-closed:
		case <-ctx.Done():
		}

		h.logger.Info(context.Background(), "WebSocket hub shut down")
	})
	return ctx.Err()
}

// IsShutdown reports whether Shutdown has been called.
func (h *Hub) IsShutdown() bool {
	return h.isShutdown.Load()
}
