// Package realtime fans order events out to the staff dashboards of each
// store.
package realtime

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-order/internal/metrics"
	"github.com/iliyamo/table-order/internal/model"
)

// Event types sent to subscribers.
const (
	TypeNewOrder    = "new_order"
	TypeOrderUpdate = "order_update"
	TypePong        = "pong"
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("realtime hub closed")

// Event is the JSON envelope of every outbound message.
type Event struct {
	Type    string      `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Subscriber receives encoded events.  Deliver must not block; an error
// means the subscriber is gone or too slow and it will be dropped.
type Subscriber interface {
	ID() string
	Deliver(msg []byte) error
	Close()
}

// Hub is the per-store subscriber registry.  It is safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	groups map[uint64]map[string]Subscriber
	closed bool
	log    logrus.FieldLogger
}

// NewHub returns an empty hub.
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		groups: make(map[uint64]map[string]Subscriber),
		log:    log.WithField("component", "realtime"),
	}
}

// Subscribe registers sub for the events of storeID.
func (h *Hub) Subscribe(storeID uint64, sub Subscriber) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	g, ok := h.groups[storeID]
	if !ok {
		g = make(map[string]Subscriber)
		h.groups[storeID] = g
	}
	if _, dup := g[sub.ID()]; !dup {
		metrics.SubscriberAdded()
	}
	g[sub.ID()] = sub
	h.log.WithFields(logrus.Fields{"store_id": storeID, "subscriber": sub.ID()}).Debug("subscribed")
	return nil
}

// Unsubscribe removes sub from storeID.  A group left empty is released.
// It reports whether sub was registered.
func (h *Hub) Unsubscribe(storeID uint64, sub Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked(storeID, sub)
}

func (h *Hub) removeLocked(storeID uint64, sub Subscriber) bool {
	g, ok := h.groups[storeID]
	if !ok {
		return false
	}
	cur, ok := g[sub.ID()]
	if !ok || cur != sub {
		return false
	}
	delete(g, sub.ID())
	if len(g) == 0 {
		delete(h.groups, storeID)
	}
	metrics.SubscriberRemoved()
	return true
}

// NotifyNewOrder sends a new_order event carrying o to the store.
func (h *Hub) NotifyNewOrder(storeID uint64, o model.Order) {
	h.Broadcast(storeID, Event{Type: TypeNewOrder, Data: o})
}

// NotifyOrderUpdate sends an order_update event carrying o to the store.
func (h *Hub) NotifyOrderUpdate(storeID uint64, o model.Order) {
	h.Broadcast(storeID, Event{Type: TypeOrderUpdate, Data: o})
}

// Broadcast delivers ev to every subscriber of storeID.  Subscribers whose
// delivery fails are unregistered and closed; the rest still receive ev.
func (h *Hub) Broadcast(storeID uint64, ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).WithField("type", ev.Type).Error("encode event")
		return
	}

	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.groups[storeID]))
	for _, s := range h.groups[storeID] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	var failed []Subscriber
	for _, s := range subs {
		if err := s.Deliver(msg); err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{"store_id": storeID, "subscriber": s.ID()}).Warn("dropping subscriber")
			failed = append(failed, s)
		}
	}
	if len(failed) == 0 {
		return
	}

	h.mu.Lock()
	for _, s := range failed {
		if h.removeLocked(storeID, s) {
			metrics.DeliveryFailed()
		}
	}
	h.mu.Unlock()
	for _, s := range failed {
		s.Close()
	}
}

// Count returns the number of subscribers of storeID.
func (h *Hub) Count(storeID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[storeID])
}

// Groups returns the number of stores with at least one subscriber.
func (h *Hub) Groups() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups)
}

// Close closes every subscriber and rejects later subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	var all []Subscriber
	for storeID, g := range h.groups {
		for _, s := range g {
			all = append(all, s)
			metrics.SubscriberRemoved()
		}
		delete(h.groups, storeID)
	}
	h.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	h.log.WithField("subscribers", len(all)).Info("realtime hub closed")
}
