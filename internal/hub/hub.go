package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/log"
)

// Config holds per-connection transport settings.
type Config struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBufferSize int
}

// Hub tracks every live client, anonymous or identified, and fans
// broadcasts out to all of them.
type Hub struct {
	clients    map[string]*Client // clientID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	config     Config
}

func NewHub(cfg Config) *Hub {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 256
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = domain.MaxFrameSize
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		config:     cfg,
	}
}

// Config returns the transport settings new clients should use.
func (h *Hub) Config() Config {
	return h.config
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldConnID, client.id).Msg("client registered")

		case client := <-h.unregister:
			h.removeClient(client)

		case data := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for _, client := range h.clients {
				if err := client.sendRaw(data); err == ErrSendBufferFull {
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			// A client that cannot keep up is dropped; its read pump then
			// runs the normal disconnect path.
			for _, client := range slow {
				l := log.L()
				l.Warn().Str(log.FieldConnID, client.id).Msg("dropping slow client")
				h.removeClient(client)
			}

		case <-h.done:
			h.mu.Lock()
			for id, client := range h.clients {
				client.close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; ok {
		delete(h.clients, client.id)
	}
	h.mu.Unlock()

	if client.close() {
		l := log.L()
		l.Debug().Str(log.FieldConnID, client.id).Msg("client unregistered")
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.close()
	}
}

// Broadcast sends message to every live client.
func (h *Hub) Broadcast(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- data:
	case <-h.done:
	}
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop closes every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}
