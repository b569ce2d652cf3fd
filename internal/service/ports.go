package service

import (
	"context"
	"time"

	"github.com/iliyamo/table-order/internal/model"
	"github.com/iliyamo/table-order/internal/queue"
)

// SessionStore is the persistence the session lifecycle needs.
// *repository.SessionRepo satisfies it.
type SessionStore interface {
	CreateForTable(ctx context.Context, tableID uint64, tokenHash string, startedAt time.Time, takeover bool) (*model.Session, uint64, error)
	GetActiveByTable(ctx context.Context, tableID uint64) (*model.Session, error)
	GetByID(ctx context.Context, id uint64) (*model.Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error)
	End(ctx context.Context, id uint64, at time.Time) error
	EndStartedBefore(ctx context.Context, cutoff, at time.Time) (int64, error)
	EndAll(ctx context.Context, at time.Time) (int64, error)
}

// TableLookup resolves scan codes.  *repository.TableRepo satisfies it.
type TableLookup interface {
	GetActiveByQRCode(ctx context.Context, qrCode string) (*model.Table, error)
}

// MenuLookup loads the menus referenced by an order.
// *repository.MenuRepo satisfies it.
type MenuLookup interface {
	GetMenusByIDs(ctx context.Context, storeID uint64, ids []uint64) (map[uint64]model.Menu, error)
}

// OrderStore is the persistence the order engine needs.
// *repository.OrderRepo satisfies it.
type OrderStore interface {
	NextOrderSeq(ctx context.Context, storeID uint64, day string) (int, error)
	CreateWithItems(ctx context.Context, o *model.Order, day string) error
	ChangeStatus(ctx context.Context, id uint64, status model.OrderStatus, at time.Time) (model.OrderStatus, error)
	GetByID(ctx context.Context, id uint64) (*model.Order, error)
	ListByStore(ctx context.Context, storeID uint64, status model.OrderStatus, limit int) ([]model.Order, error)
	ListBySession(ctx context.Context, sessionID uint64) ([]model.Order, error)
	History(ctx context.Context, orderID uint64) ([]model.OrderHistory, error)
}

// AdminStore looks up staff accounts.  *repository.AdminRepo satisfies it.
type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (*model.Admin, error)
}

// Notifier pushes order events to the staff of a store.
// *realtime.Hub satisfies it.
type Notifier interface {
	NotifyNewOrder(storeID uint64, o model.Order)
	NotifyOrderUpdate(storeID uint64, o model.Order)
}

// EventPublisher forwards order events to the message broker.
// *queue.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.OrderEvent) error
}
