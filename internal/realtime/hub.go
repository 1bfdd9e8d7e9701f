package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Publisher fans an owner event out to every instance.
type Publisher interface {
	PublishOwnerEvent(ownerID uuid.UUID, event string, payload []byte) error
}

// Subscriber delivers events published for one owner.
type Subscriber interface {
	SubscribeOwner(ownerID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains owner profile -> set of connections.
// With Redis configured, events go through pub/sub so every instance delivers them exactly once.
type Hub struct {
	owners map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func()
	mu     sync.RWMutex
	subMu  sync.Mutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// NewHub creates a new WebSocket hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		owners: make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client and makes sure its owner is subscribed. If the subscription cannot be
// made the client is removed again and the error returned; the next Register for the owner retries.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	if h.owners[c.OwnerID] == nil {
		h.owners[c.OwnerID] = make(map[string]*Client)
	}
	h.owners[c.OwnerID][c.ID] = c
	_, subscribed := h.subs[c.OwnerID]
	h.mu.Unlock()

	if h.sub != nil && !subscribed {
		if err := h.subscribe(c.OwnerID); err != nil {
			h.Unregister(c)
			return err
		}
	}
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.String("owner_id", c.OwnerID.String()))
	return nil
}

// subscribe opens the owner's subscription without holding mu, so broadcasts are not blocked on Redis.
func (h *Hub) subscribe(ownerID uuid.UUID) error {
	h.subMu.Lock()
	defer h.subMu.Unlock()

	h.mu.RLock()
	_, subscribed := h.subs[ownerID]
	h.mu.RUnlock()
	if subscribed {
		return nil
	}

	cancel, err := h.sub.SubscribeOwner(ownerID, func(event string, payload []byte) {
		h.broadcast(ownerID, WSMessage{Event: event, Data: payload})
	})
	if err != nil {
		h.logger.Warn("owner subscription failed", zap.String("owner_id", ownerID.String()), zap.Error(err))
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.owners[ownerID]) == 0 {
		// every client left while subscribing
		cancel()
		return nil
	}
	h.subs[ownerID] = cancel
	return nil
}

// Unregister removes a client and closes its send channel. Cancels the subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.owners[c.OwnerID]
	if !ok {
		return
	}
	if _, ok := m[c.ID]; !ok {
		return
	}
	delete(m, c.ID)
	close(c.send)
	if len(m) == 0 {
		delete(h.owners, c.OwnerID)
		if cancel, ok := h.subs[c.OwnerID]; ok {
			cancel()
			delete(h.subs, c.OwnerID)
		}
	}
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID), zap.String("owner_id", c.OwnerID.String()))
}

// PublishToOwner delivers an event to every connection of the owner across instances.
func (h *Hub) PublishToOwner(ownerID uuid.UUID, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if h.pub != nil {
		return h.pub.PublishOwnerEvent(ownerID, event, data)
	}
	h.broadcast(ownerID, WSMessage{Event: event, Data: data})
	return nil
}

// Connections returns the number of local connections for an owner.
func (h *Hub) Connections(ownerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.owners[ownerID])
}

func (h *Hub) broadcast(ownerID uuid.UUID, msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.owners[ownerID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("client send buffer full, dropping event", zap.String("client_id", c.ID), zap.String("event", msg.Event))
		}
	}
}
