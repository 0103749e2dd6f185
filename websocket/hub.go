package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	UserID uuid.UUID
	Conn   Conn
}

type envelope struct {
	userID  uuid.UUID
	payload interface{}
}

// Hub fans server events out to connected users. One connection per user;
// a newer connection replaces the older one.
type Hub struct {
	log *zap.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]Conn

	register   chan *Client
	unregister chan *Client
	drop       chan uuid.UUID
	push       chan envelope
	done       chan struct{}
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[uuid.UUID]Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		drop:       make(chan uuid.UUID),
		push:       make(chan envelope, 256),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	if h == nil {
		return
	}
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	if h == nil {
		return
	}
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Disconnect closes userID's connection, if any.
func (h *Hub) Disconnect(userID uuid.UUID) {
	if h == nil {
		return
	}
	select {
	case h.drop <- userID:
	case <-h.done:
	}
}

func (h *Hub) Connected(userID uuid.UUID) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// Push queues payload for userID and never blocks. It reports false when the
// user is offline or the queue is full.
func (h *Hub) Push(userID uuid.UUID, payload interface{}) bool {
	if !h.Connected(userID) {
		return false
	}
	select {
	case h.push <- envelope{userID: userID, payload: payload}:
		return true
	default:
		h.log.Warn("websocket push queue full, dropping event", zap.Stringer("user_id", userID))
		return false
	}
}

// Run owns every write to registered connections. Register, Unregister and
// Disconnect return immediately once Run has stopped.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.UserID]; ok && old != client.Conn {
				_ = old.Close()
			}
			h.clients[client.UserID] = client.Conn
			h.mu.Unlock()
			h.log.Debug("websocket client registered", zap.Stringer("user_id", client.UserID))
		case client := <-h.unregister:
			h.mu.Lock()
			if conn, ok := h.clients[client.UserID]; ok && conn == client.Conn {
				delete(h.clients, client.UserID)
			}
			h.mu.Unlock()
			h.log.Debug("websocket client unregistered", zap.Stringer("user_id", client.UserID))
		case userID := <-h.drop:
			h.mu.Lock()
			if conn, ok := h.clients[userID]; ok {
				_ = conn.Close()
				delete(h.clients, userID)
			}
			h.mu.Unlock()
		case env := <-h.push:
			h.mu.RLock()
			conn, ok := h.clients[env.userID]
			h.mu.RUnlock()
			if !ok {
				continue
			}
			if err := conn.WriteJSON(env.payload); err != nil {
				h.log.Warn("websocket write failed", zap.Stringer("user_id", env.userID), zap.Error(err))
				_ = conn.Close()
				h.mu.Lock()
				if h.clients[env.userID] == conn {
					delete(h.clients, env.userID)
				}
				h.mu.Unlock()
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, id)
	}
}
