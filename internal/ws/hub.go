package ws

import (
	"context"
	"encoding/json"
	"sync"

	pkglogger "github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const redisPubSubChannel = "social:notifications"

// Event represents a real-time event sent via WebSocket
type Event struct {
	Type    string      `json:"type"`    // "conversations", "new_message", "friend_request"
	Payload interface{} `json:"payload"` // event-specific data
}

// Hub manages WebSocket clients and fans events out to a user's connections
type Hub struct {
	// Registered clients grouped by user ID
	clients map[string]map[*Client]bool

	// Register/unregister channels
	register   chan *Client
	unregister chan *Client

	// Send to a specific user
	broadcast chan *targetedEvent

	mu          sync.RWMutex
	redisClient *redis.Client
	ctx         context.Context
	cancel      context.CancelFunc
}

type targetedEvent struct {
	UserID string
	Data   []byte
}

// NewHub creates a new Hub. redisClient may be nil for a single instance.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *targetedEvent, 256),
		redisClient: redisClient,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		client.closeSend()
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	// Start Redis subscriber if Redis is available
	if h.redisClient != nil {
		go h.subscribeRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.UserID] {
				if !client.enqueue(msg.Data) {
					// 느린 클라이언트는 끊음
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					client.closeSend()
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	client.closeSend()
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}
}

// ConnectionCount returns the number of connections a user has on this instance
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// SendToUser sends an event to every connection of a user (local + Redis publish)
func (h *Hub) SendToUser(userID string, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("type", event.Type).Msg("ws event encode failed")
		return
	}

	// Publish to Redis for multi-instance support; every instance,
	// this one included, delivers what it receives on the channel
	if h.redisClient != nil {
		msg, err := json.Marshal(&redisMessage{UserID: userID, Event: data})
		if err == nil && h.redisClient.Publish(h.ctx, redisPubSubChannel, msg).Err() == nil {
			return
		}
	}
	h.deliverLocal(userID, data)
}

// Notify implements the service notifier contract
func (h *Hub) Notify(userID, eventType string, payload interface{}) {
	h.SendToUser(userID, &Event{Type: eventType, Payload: payload})
}

func (h *Hub) deliverLocal(userID string, data []byte) {
	select {
	case h.broadcast <- &targetedEvent{UserID: userID, Data: data}:
	case <-h.ctx.Done():
	}
}

type redisMessage struct {
	UserID string          `json:"user_id"`
	Event  json.RawMessage `json:"event"`
}

// subscribeRedis listens for events from every instance
func (h *Hub) subscribeRedis() {
	pubsub := h.redisClient.Subscribe(h.ctx, redisPubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var rm redisMessage
			if err := json.Unmarshal([]byte(msg.Payload), &rm); err != nil {
				pkglogger.GetLogger().Warn().Err(err).Msg("ws redis message decode failed")
				continue
			}
			// Only local delivery (don't re-publish to Redis)
			h.deliverLocal(rm.UserID, rm.Event)
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}
