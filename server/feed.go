package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
	feedBuffer     = 32
)

var upgrader = websocket.Upgrader{
	// The feed is public; the API key, when set, is checked before upgrade
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Hub fans commitment changes out to connected feed clients
type Hub struct {
	mu      sync.Mutex
	clients map[*feedClient]struct{}
}

type feedClient struct {
	conn *websocket.Conn
	send chan store.ChangeEvent
	once sync.Once
	done chan struct{}
}

func (fc *feedClient) close() {
	fc.once.Do(func() {
		close(fc.done)
		_ = fc.conn.Close()
	})
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[*feedClient]struct{})}
}

// Broadcast queues ev for every client. A client whose buffer is full is
// dropped rather than allowed to stall writers.
func (h *Hub) Broadcast(typ store.EventType, rec model.Commitment) {
	ev := store.ChangeEvent{Type: typ, Record: rec}

	h.mu.Lock()
	defer h.mu.Unlock()
	for fc := range h.clients {
		select {
		case fc.send <- ev:
		default:
			delete(h.clients, fc)
			feedClients.Dec()
			feedDropped.Inc()
			fc.close()
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for fc := range h.clients {
		delete(h.clients, fc)
		feedClients.Dec()
		fc.close()
	}
}

func (h *Hub) add(fc *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[fc] = struct{}{}
	feedClients.Inc()
}

func (h *Hub) remove(fc *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[fc]; ok {
		delete(h.clients, fc)
		feedClients.Dec()
	}
}

// handleFeed upgrades to a websocket and streams change events
func (s *Server) handleFeed(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("Feed upgrade failed", logger.Err(err))
		return nil
	}

	fc := &feedClient{
		conn: conn,
		send: make(chan store.ChangeEvent, feedBuffer),
		done: make(chan struct{}),
	}
	s.hub.add(fc)
	logger.Info("Feed client connected", logger.F("remote", c.RealIP()))

	go fc.writeLoop()
	fc.readLoop()

	s.hub.remove(fc)
	fc.close()
	logger.Info("Feed client disconnected", logger.F("remote", c.RealIP()))
	return nil
}

// readLoop discards client messages and returns when the connection drops
func (fc *feedClient) readLoop() {
	fc.conn.SetReadLimit(512)
	_ = fc.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	fc.conn.SetPongHandler(func(string) error {
		return fc.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := fc.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (fc *feedClient) writeLoop() {
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev := <-fc.send:
			_ = fc.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := fc.conn.WriteJSON(ev); err != nil {
				fc.close()
				return
			}
		case <-ticker.C:
			_ = fc.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := fc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				fc.close()
				return
			}
		case <-fc.done:
			return
		}
	}
}
