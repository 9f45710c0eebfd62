package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"market-insight-be/internal/entity"
	"market-insight-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel carries notices between instances when Redis is configured.
const ClusterChannel = "strategy_notices"

type clusterPayload struct {
	Origin  string          `json:"origin"`
	Owner   string          `json:"owner"`
	Message json.RawMessage `json:"message"`
}

// Hub fans notices out to every open connection of their owner.
type Hub struct {
	// owner -> connections (one per tab or device)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once

	mu sync.RWMutex

	// optional; nil keeps delivery local to this instance
	rdb    *redis.Client
	origin string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rdb:        rdb,
		origin:     uuid.NewString(),
		logger:     log,
	}
}

// Run serves register/unregister requests until Close.
func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.Owner] = append(h.clients[client.Owner], client)
			h.mu.Unlock()
			h.logger.Info("HUB", "Client registered", map[string]interface{}{"owner": client.Owner})

		case client := <-h.unregister:
			h.remove(client)

		case <-h.done:
			h.mu.Lock()
			for owner, clients := range h.clients {
				for _, c := range clients {
					c.closeSend()
				}
				delete(h.clients, owner)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Close stops Run and closes every client's send channel.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.Owner]
	for i, c := range clients {
		if c == client {
			h.clients[client.Owner] = append(clients[:i], clients[i+1:]...)
			client.closeSend()
			break
		}
	}
	if len(h.clients[client.Owner]) == 0 {
		delete(h.clients, client.Owner)
		h.logger.Info("HUB", "Client completely unregistered", map[string]interface{}{"owner": client.Owner})
	}
}

// Connected reports how many connections the owner has on this instance.
func (h *Hub) Connected(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[owner])
}

// Send pushes a notice to the owner's connections here and, through Redis,
// on the other instances.
func (h *Hub) Send(owner string, notice entity.Notice) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "notice",
		"data": notice,
	})
	if err != nil {
		h.logger.Error("HUB", "Failed to marshal notice", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliver(owner, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterPayload{Origin: h.origin, Owner: owner, Message: data})
		if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
			h.logger.Warn("HUB", "Failed to publish notice to cluster", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) deliver(owner string, data []byte) {
	// held while sending; remove closes Send under the write lock
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[owner] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("HUB", "Client send buffer full, dropping connection", map[string]interface{}{"owner": owner})
			go h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) subscribeToRedis() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()
	ch := pubsub.Channel()

	for {
		select {
		case <-h.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterPayload
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("HUB", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			// already delivered locally by Send
			if payload.Origin == h.origin {
				continue
			}
			h.deliver(payload.Owner, payload.Message)
		}
	}
}
