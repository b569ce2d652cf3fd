package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-order/internal/metrics"
	"github.com/iliyamo/table-order/internal/model"
	"github.com/iliyamo/table-order/internal/queue"
	"github.com/iliyamo/table-order/internal/repository"
)

// AllowedTipRates are the tip percentages an order may carry.
var AllowedTipRates = []int{0, 5, 10, 15, 20}

// publishTimeout bounds one broker publish after commit.
const publishTimeout = 5 * time.Second

// MaxLineQuantity caps the quantity of a single order line.
const MaxLineQuantity = 999

// maxSubtotal keeps subtotal*rate within int64 when the tip is computed.
const maxSubtotal = math.MaxInt64 / 100

// OrderLine is one requested menu item.
type OrderLine struct {
	MenuID   uint64 `json:"menu_id"`
	Quantity int    `json:"quantity"`
}

// OrderService validates, prices, persists and transitions orders.  After a
// successful write it notifies the realtime hub and, when configured,
// publishes an event to the broker.  Neither side effect can undo the
// write.
type OrderService struct {
	orders   OrderStore
	menus    MenuLookup
	sessions SessionStore
	notifier Notifier
	events   EventPublisher
	loc      *time.Location
	now      func() time.Time
	log      logrus.FieldLogger

	wg sync.WaitGroup
}

// NewOrderService wires an OrderService.  events may be nil.  loc defines
// the business day used for order numbering; nil means UTC.
func NewOrderService(orders OrderStore, menus MenuLookup, sessions SessionStore, notifier Notifier, events EventPublisher, loc *time.Location, log logrus.FieldLogger) *OrderService {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderService{
		orders:   orders,
		menus:    menus,
		sessions: sessions,
		notifier: notifier,
		events:   events,
		loc:      loc,
		now:      time.Now,
		log:      log.WithField("component", "orders"),
	}
}

// CalculateTip returns round(subtotal*rate/100) with ties rounded to even.
// Rates outside AllowedTipRates yield ErrInvalidTipRate.
func CalculateTip(subtotal int64, rate int) (int64, error) {
	if !validTipRate(rate) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTipRate, rate)
	}
	return roundHalfEven(subtotal*int64(rate), 100), nil
}

func validTipRate(rate int) bool {
	for _, r := range AllowedTipRates {
		if r == rate {
			return true
		}
	}
	return false
}

// roundHalfEven divides num by den (num >= 0, den > 0) rounding ties to
// the even quotient.
func roundHalfEven(num, den int64) int64 {
	q, r := num/den, num%den
	switch {
	case 2*r > den:
		q++
	case 2*r == den && q%2 == 1:
		q++
	}
	return q
}

// BusinessDay returns the calendar date of at in the store timezone, in
// the layout of the business_date column.
func (s *OrderService) BusinessDay(at time.Time) string {
	return at.In(s.loc).Format(repository.BusinessDateLayout)
}

// GenerateOrderNumber reserves the next order number of storeID for the
// business day containing at.  The number is consumed even if no order is
// ever written with it.
func (s *OrderService) GenerateOrderNumber(ctx context.Context, storeID uint64, at time.Time) (string, error) {
	seq, err := s.orders.NextOrderSeq(ctx, storeID, s.BusinessDay(at))
	if err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}
	return model.FormatOrderNumber(seq), nil
}

// CreateOrder prices lines against the current menu and persists the order
// with its items in one transaction.  All validation happens before any
// write: the session must be open, every quantity within 1..MaxLineQuantity,
// every menu available in the session's store, the total within int64
// range and the tip rate allowed.
func (s *OrderService) CreateOrder(ctx context.Context, sessionID uint64, lines []OrderLine, tipRate int) (*model.Order, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrSessionNotActive
	}
	if err != nil {
		return nil, err
	}
	if !sess.Active() {
		return nil, ErrSessionNotActive
	}
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	ids := make([]uint64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.MenuID)
	}
	menus, err := s.menus.GetMenusByIDs(ctx, sess.StoreID, ids)
	if err != nil {
		return nil, fmt.Errorf("load menus: %w", err)
	}

	now := s.now().UTC()
	items := make([]model.OrderItem, 0, len(lines))
	var subtotal int64
	for _, l := range lines {
		if l.Quantity <= 0 || l.Quantity > MaxLineQuantity {
			return nil, fmt.Errorf("%w: menu %d", ErrInvalidQuantity, l.MenuID)
		}
		m, ok := menus[l.MenuID]
		if !ok || !m.IsAvailable {
			return nil, fmt.Errorf("%w: menu %d", ErrMenuNotAvailable, l.MenuID)
		}
		if m.Price < 0 || (m.Price > 0 && int64(l.Quantity) > (maxSubtotal-subtotal)/m.Price) {
			return nil, fmt.Errorf("%w: menu %d", ErrOrderTooLarge, l.MenuID)
		}
		line := m.Price * int64(l.Quantity)
		subtotal += line
		items = append(items, model.OrderItem{
			MenuID:    m.ID,
			MenuName:  m.Name,
			MenuPrice: m.Price,
			Quantity:  l.Quantity,
			Subtotal:  line,
			CreatedAt: now,
		})
	}

	tip, err := CalculateTip(subtotal, tipRate)
	if err != nil {
		return nil, err
	}

	o := &model.Order{
		SessionID:      sess.ID,
		StoreID:        sess.StoreID,
		TableID:        sess.TableID,
		SubtotalAmount: subtotal,
		TipRate:        tipRate,
		TipAmount:      tip,
		TotalAmount:    subtotal + tip,
		Status:         model.StatusPending,
		Items:          items,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.orders.CreateWithItems(ctx, o, s.BusinessDay(now))
	switch {
	case errors.Is(err, repository.ErrSessionNotFound), errors.Is(err, repository.ErrSessionEnded):
		return nil, ErrSessionNotActive
	case err != nil:
		return nil, fmt.Errorf("persist order: %w", err)
	}

	metrics.OrderCreated(o.StoreID)
	s.log.WithFields(logrus.Fields{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"session_id":   o.SessionID,
		"store_id":     o.StoreID,
		"total":        o.TotalAmount,
	}).Info("order created")

	s.notifier.NotifyNewOrder(o.StoreID, *o)
	s.publish(queue.NewOrderEvent(queue.EventOrderCreated, *o, "", now))
	return o, nil
}

// UpdateOrderStatus moves an order to status and records the change in
// its history.  Any status may follow any other.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uint64, status string) (*model.Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, ok := model.ParseOrderStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	now := s.now().UTC()
	old, err := s.orders.ChangeStatus(ctx, orderID, next, now)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("change status of order %d: %w", orderID, err)
	}
	o.Status = next
	o.UpdatedAt = now

	metrics.StatusChanged(string(next))
	s.log.WithFields(logrus.Fields{
		"order_id":   o.ID,
		"store_id":   o.StoreID,
		"old_status": old,
		"new_status": next,
	}).Info("order status changed")

	s.notifier.NotifyOrderUpdate(o.StoreID, *o)
	s.publish(queue.NewOrderEvent(queue.EventOrderStatusChanged, *o, old, now))
	return o, nil
}

// publish sends ev to the broker in the background.  Failures are logged
// and dropped.
func (s *OrderService) publish(ev queue.OrderEvent) {
	if s.events == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.events.Publish(ctx, ev); err != nil {
			s.log.WithError(err).WithField("order_id", ev.OrderID).Warn("order event not published")
		}
	}()
}

// Wait blocks until background publishes have finished.
func (s *OrderService) Wait() { s.wg.Wait() }

// GetOrder returns an order with its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID uint64) (*model.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetStoreOrder is GetOrder restricted to one store.  Orders of other
// stores are reported as ErrOrderNotFound.
func (s *OrderService) GetStoreOrder(ctx context.Context, storeID, orderID uint64) (*model.Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.StoreID != storeID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// GetSessionOrder is GetOrder restricted to one session.
func (s *OrderService) GetSessionOrder(ctx context.Context, sessionID, orderID uint64) (*model.Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.SessionID != sessionID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// UpdateStoreOrderStatus is UpdateOrderStatus for an order that must
// belong to storeID.
func (s *OrderService) UpdateStoreOrderStatus(ctx context.Context, storeID, orderID uint64, status string) (*model.Order, error) {
	if _, err := s.GetStoreOrder(ctx, storeID, orderID); err != nil {
		return nil, err
	}
	return s.UpdateOrderStatus(ctx, orderID, status)
}

// ListOrders returns the orders of a store, newest first, optionally
// filtered by status.  An unknown status yields ErrInvalidStatus.
func (s *OrderService) ListOrders(ctx context.Context, storeID uint64, status string, limit int) ([]model.Order, error) {
	var filter model.OrderStatus
	if status != "" {
		st, ok := model.ParseOrderStatus(status)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
		filter = st
	}
	return s.orders.ListByStore(ctx, storeID, filter, limit)
}

// ListSessionOrders returns the orders placed within a session.
func (s *OrderService) ListSessionOrders(ctx context.Context, sessionID uint64) ([]model.Order, error) {
	return s.orders.ListBySession(ctx, sessionID)
}

// OrderHistory returns the status changes of an order of storeID.
func (s *OrderService) OrderHistory(ctx context.Context, storeID, orderID uint64) ([]model.OrderHistory, error) {
	if _, err := s.GetStoreOrder(ctx, storeID, orderID); err != nil {
		return nil, err
	}
	return s.orders.History(ctx, orderID)
}
