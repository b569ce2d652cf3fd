// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the audit consumer of the order.events
// queue.
package queue

import (
	"time"

	"github.com/iliyamo/table-order/internal/model"
)

// OrderEventsQueue is the durable queue carrying order lifecycle events.
const OrderEventsQueue = "order.events"

// Event names carried in OrderEvent.Event.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is published after an order is created or changes status.
// It contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type OrderEvent struct {
	Event       string `json:"event"`
	OrderID     uint64 `json:"order_id"`
	StoreID     uint64 `json:"store_id"`
	TableID     uint64 `json:"table_id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	OldStatus   string `json:"old_status,omitempty"`
	TotalAmount int64  `json:"total_amount"`
	OccurredAt  string `json:"occurred_at"`
}

// NewOrderEvent builds an event for o.  old is empty for creations.
func NewOrderEvent(name string, o model.Order, old model.OrderStatus, at time.Time) OrderEvent {
	return OrderEvent{
		Event:       name,
		OrderID:     o.ID,
		StoreID:     o.StoreID,
		TableID:     o.TableID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status),
		OldStatus:   string(old),
		TotalAmount: o.TotalAmount,
		OccurredAt:  at.UTC().Format(time.RFC3339),
	}
}
