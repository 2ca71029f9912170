package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"diagram2code/internal/domain/entity"
	"diagram2code/internal/domain/repository"
	"diagram2code/internal/infrastructure/metrics"
)

const (
	subscriberBuffer = 32
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
)

// EventHub fans state events out to websocket subscribers. A subscriber that
// cannot keep up is disconnected; publishers never block.
type EventHub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*subscriber]struct{}
	closed  bool
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

var _ repository.EventPublisher = (*EventHub)(nil)

func NewEventHub(logger *slog.Logger) *EventHub {
	return &EventHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*subscriber]struct{}),
	}
}

func (h *EventHub) Publish(e entity.StateEvent) {
	msg, err := json.Marshal(e)
	if err != nil {
		metrics.IncError("events", "marshal")
		h.logger.Error("marshal event failed", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.clients {
		select {
		case s.send <- msg:
		default:
			h.logger.Warn("dropping slow event subscriber", "remote", s.conn.RemoteAddr().String())
			h.removeLocked(s)
		}
	}
}

// ServeHTTP upgrades the request and streams events until the peer goes away.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	s := &subscriber{conn: conn, send: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[s] = struct{}{}
	h.mu.Unlock()
	metrics.IncEventSubscribers()
	h.logger.Info("event subscriber connected", "remote", conn.RemoteAddr().String())

	go h.writeLoop(s)
	h.readLoop(s)
}

// readLoop discards client messages; it exists to notice the peer closing.
func (h *EventHub) readLoop(s *subscriber) {
	defer h.remove(s)

	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventHub) writeLoop(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(s)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(s)
				return
			}
		}
	}
}

func (h *EventHub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

func (h *EventHub) removeLocked(s *subscriber) {
	if _, ok := h.clients[s]; !ok {
		return
	}
	delete(h.clients, s)
	s.once.Do(func() { close(s.send) })
	metrics.DecEventSubscribers()
}

// Close disconnects every subscriber and refuses new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.clients {
		h.removeLocked(s)
	}
}
