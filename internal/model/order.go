package model

import (
	"fmt"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every recognized status in lifecycle order.
var OrderStatuses = []OrderStatus{StatusPending, StatusPreparing, StatusReady, StatusServed, StatusCancelled}

// ParseOrderStatus returns the status named by s and false when s is
// not one of the recognized values.  Matching is exact.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Order is one checkout event within a session.  Totals are derived:
// SubtotalAmount is the sum of the item subtotals, TipAmount is the
// rounded tip on the subtotal and TotalAmount = SubtotalAmount + TipAmount.
//
// Fields:
//  ID             – primary key identifier.
//  SessionID      – session that placed the order.
//  StoreID        – store of the session's table, copied at insert.
//  TableID        – table of the session, copied at insert.
//  OrderNumber    – daily sequence label such as "#007".
//  SubtotalAmount – sum of line subtotals.
//  TipRate        – tip percentage (0, 5, 10, 15 or 20).
//  TipAmount      – computed tip.
//  TotalAmount    – subtotal plus tip.
//  Status         – lifecycle state.
//  Items          – priced lines, created with the order.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Order struct {
	ID             uint64      `json:"id"`              // orders.id
	SessionID      uint64      `json:"session_id"`      // orders.session_id
	StoreID        uint64      `json:"store_id"`        // orders.store_id
	TableID        uint64      `json:"table_id"`        // orders.table_id
	OrderNumber    string      `json:"order_number"`    // orders.order_number
	SubtotalAmount int64       `json:"subtotal_amount"` // orders.subtotal_amount
	TipRate        int         `json:"tip_rate"`        // orders.tip_rate
	TipAmount      int64       `json:"tip_amount"`      // orders.tip_amount
	TotalAmount    int64       `json:"total_amount"`    // orders.total_amount
	Status         OrderStatus `json:"status"`          // orders.status
	Items          []OrderItem `json:"items"`
	CreatedAt      time.Time   `json:"created_at"` // orders.created_at
	UpdatedAt      time.Time   `json:"updated_at"` // orders.updated_at
}

// OrderItem is a priced line of an order.  MenuName and MenuPrice are
// snapshots taken when the order was placed.
type OrderItem struct {
	ID        uint64    `json:"id"`         // order_items.id
	OrderID   uint64    `json:"order_id"`   // order_items.order_id
	MenuID    uint64    `json:"menu_id"`    // order_items.menu_id
	MenuName  string    `json:"menu_name"`  // order_items.menu_name
	MenuPrice int64     `json:"menu_price"` // order_items.menu_price
	Quantity  int       `json:"quantity"`   // order_items.quantity
	Subtotal  int64     `json:"subtotal"`   // order_items.subtotal
	CreatedAt time.Time `json:"created_at"` // order_items.created_at
}

// OrderHistory is an append-only audit row written for every status change.
type OrderHistory struct {
	ID        uint64      `json:"id"`         // order_history.id
	OrderID   uint64      `json:"order_id"`   // order_history.order_id
	OldStatus OrderStatus `json:"old_status"` // order_history.old_status
	NewStatus OrderStatus `json:"new_status"` // order_history.new_status
	ChangedAt time.Time   `json:"changed_at"` // order_history.changed_at
}

// FormatOrderNumber renders a daily sequence value as "#NNN".  Values
// above 999 keep all their digits.
func FormatOrderNumber(seq int) string {
	return fmt.Sprintf("#%03d", seq)
}
