package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub streams per-cycle engine reports to connected websocket clients so an
// operator dashboard can watch quoting without scraping logs. Slow or dead
// clients are dropped on write failure.
type Hub struct {
	logger    *zap.Logger
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	stop      chan struct{}
	stopOnce  sync.Once
	lock      sync.Mutex
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:    logger,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 16),
		stop:      make(chan struct{}),
	}
}

// Run pumps broadcast messages to all clients until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case message := <-h.broadcast:
			h.lock.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.lock.Unlock()
		case <-h.stop:
			h.lock.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.lock.Unlock()
			return
		}
	}
}

// Stop closes every client connection and ends the Run loop.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// BroadcastJSON serializes v and queues it for delivery. Drops the message
// if the queue is full rather than stalling the quoting loop.
func (h *Hub) BroadcastJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("telemetry marshal failed", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Debug("telemetry queue full, dropping report")
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// Handler returns the websocket upgrade handler for mounting on a mux.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		h.lock.Lock()
		h.clients[conn] = true
		h.lock.Unlock()
	}
}

// StartServer mounts the hub at /ws on its own mux and serves it.
func StartServer(hub *Hub, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.Handler())
	hub.logger.Info("telemetry server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}
