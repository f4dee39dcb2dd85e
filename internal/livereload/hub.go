// Package livereload pushes a reload notification to every browser tab
// with an open connection when the page catalog changes.
package livereload

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shovehq/shove/internal/metrics"
)

// ErrAlreadyReloading is returned by BroadcastReload when a previous
// broadcast is still draining clients; the caller should simply skip this
// round rather than queue up another one.
var ErrAlreadyReloading = errors.New("livereload: already broadcasting a reload")

const (
	writeTimeout  = 5 * time.Second
	pingInterval  = 10 * time.Second
	pongWait      = 15 * time.Second
	reloadMessage = "reload"
)

var upgrader = websocket.Upgrader{
	// Any page served by this process may open a live-reload socket back
	// to it; there is no cross-site credential to protect here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub tracks connected live-reload clients and broadcasts "reload" to all
// of them when the page catalog changes. Broadcasting is a non-blocking
// try-lock: a broadcast already in flight causes the new one to fail fast
// with ErrAlreadyReloading instead of queuing behind it.
type Hub struct {
	mu           sync.Mutex
	clients      map[*websocket.Conn]struct{}
	broadcasting sync.Mutex
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// New builds an empty Hub.
func New(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
	}
}

// SetMetrics attaches the Prometheus gauge this hub keeps in sync with its
// connected-client count. It is optional; a Hub with no metrics attached
// behaves identically, just without instrumentation.
func (h *Hub) SetMetrics(m *metrics.Metrics) {
	h.metrics = m
}

func (h *Hub) reportClientCount() {
	if h.metrics == nil {
		return
	}
	h.metrics.LiveReloadConns.Set(float64(h.ClientCount()))
}

// Attach upgrades an HTTP request to a websocket connection and registers
// it as a live-reload client.
func (h *Hub) Attach(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.reportClientCount()

	h.logger.Debug("live-reload client connected", "remote_addr", r.RemoteAddr)
	return nil
}

// BroadcastReload sends a reload message to every connected client, then
// drains and closes all of them -- a fresh page load will reconnect. It
// returns ErrAlreadyReloading rather than blocking if another broadcast is
// already in progress.
func (h *Hub) BroadcastReload() error {
	if !h.broadcasting.TryLock() {
		return ErrAlreadyReloading
	}
	defer h.broadcasting.Unlock()

	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()
	h.reportClientCount()

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(conn *websocket.Conn) {
			defer wg.Done()
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reloadMessage)); err != nil {
				h.logger.Debug("failed to send reload to client", "error", err)
			}
			_ = conn.Close()
		}(c)
	}
	wg.Wait()

	h.logger.Info("broadcast reload to live-reload clients", "client_count", len(clients))
	return nil
}

// Sweep sends a ping frame to every connected client every interval until
// stop is closed, dropping (and closing) any client whose ping write fails.
// It does not read from clients: pongs are not awaited, so a peer that
// stops answering while its connection still accepts writes is not
// dropped. Clients are pinged one after another, each write bounded by
// writeTimeout.
func (h *Hub) Sweep(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.pingAll()
		}
	}
}

func (h *Hub) pingAll() {
	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
			h.removeClient(c)
			_ = c.Close()
		}
	}
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	h.reportClientCount()
}

// Stop closes every currently connected client without broadcasting a
// reload message, used during graceful shutdown.
func (h *Hub) Stop() {
	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()
	h.reportClientCount()

	for _, c := range clients {
		_ = c.Close()
	}
}

// ClientCount reports how many clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
