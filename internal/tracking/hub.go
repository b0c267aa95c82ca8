package tracking

import (
	"sync"
	"time"
)

// OrderUpdate is the authoritative tracking payload. Sessions always
// recompute their view from it, never from accumulated deltas.
type OrderUpdate struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	CourierID *string   `json:"courier_id"`
	Lat       *float64  `json:"lat"`
	Lng       *float64  `json:"lng"`
	At        time.Time `json:"at"`
}

// Hub fans live order updates out to open sessions. Sessions are
// independent long-lived streams: a slow consumer only loses its own
// intermediate samples, it never blocks the publisher or its siblings.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
}

type Session struct {
	hub     *Hub
	ch      chan OrderUpdate
	mu      sync.Mutex
	orderID string
	closed  bool
}

func NewHub() *Hub {
	return &Hub{sessions: map[string]map[*Session]struct{}{}}
}

// Subscribe opens a session tracking one order id.
func (h *Hub) Subscribe(orderID string) *Session {
	s := &Session{hub: h, ch: make(chan OrderUpdate, 1), orderID: orderID}
	h.attach(s, orderID)
	return s
}

// Publish sends the update to every session tracking that order. A full
// session buffer is drained first so the receiver always gets the latest
// sample; missed ones are dropped, never queued.
func (h *Hub) Publish(u OrderUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions[u.OrderID] {
		select {
		case s.ch <- u:
		default:
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- u:
			default:
			}
		}
	}
}

func (h *Hub) attach(s *Session, orderID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[orderID] == nil {
		h.sessions[orderID] = map[*Session]struct{}{}
	}
	h.sessions[orderID][s] = struct{}{}
}

func (h *Hub) detach(s *Session, orderID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.sessions[orderID]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(h.sessions, orderID)
		}
	}
}

// Updates is the session's receive stream.
func (s *Session) Updates() <-chan OrderUpdate {
	return s.ch
}

// Retarget re-subscribes the session when its tracked order id changes.
func (s *Session) Retarget(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.orderID == orderID {
		return
	}
	s.hub.detach(s, s.orderID)
	// drop samples of the previous order
	select {
	case <-s.ch:
	default:
	}
	s.orderID = orderID
	s.hub.attach(s, orderID)
}

// Close detaches the session on teardown. Safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.hub.detach(s, s.orderID)
}
