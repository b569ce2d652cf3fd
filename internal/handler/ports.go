package handler

import (
	"context"

	"github.com/iliyamo/table-order/internal/model"
	"github.com/iliyamo/table-order/internal/service"
	"github.com/iliyamo/table-order/internal/utils"
)

// SessionAPI is the part of the session service the handlers call.
type SessionAPI interface {
	OpenByQRCode(ctx context.Context, qrCode string) (*model.Session, *model.Table, error)
	EndSession(ctx context.Context, sessionID uint64) error
	EndTableSession(ctx context.Context, tableID uint64) (*model.Session, error)
	GetActiveSession(ctx context.Context, tableID uint64) (*model.Session, error)
}

// OrderAPI is the part of the order service the handlers call.
type OrderAPI interface {
	CreateOrder(ctx context.Context, sessionID uint64, lines []service.OrderLine, tipRate int) (*model.Order, error)
	GetSessionOrder(ctx context.Context, sessionID, orderID uint64) (*model.Order, error)
	ListSessionOrders(ctx context.Context, sessionID uint64) ([]model.Order, error)
	GetStoreOrder(ctx context.Context, storeID, orderID uint64) (*model.Order, error)
	UpdateStoreOrderStatus(ctx context.Context, storeID, orderID uint64, status string) (*model.Order, error)
	ListOrders(ctx context.Context, storeID uint64, status string, limit int) ([]model.Order, error)
	OrderHistory(ctx context.Context, storeID, orderID uint64) ([]model.OrderHistory, error)
}

// Authenticator logs staff in.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (utils.AccessToken, *model.Admin, error)
}

// TableStore is table persistence, scoped by store.
type TableStore interface {
	ListByStore(ctx context.Context, storeID uint64) ([]model.Table, error)
	GetByID(ctx context.Context, storeID, id uint64) (*model.Table, error)
	Create(ctx context.Context, t *model.Table) error
	Update(ctx context.Context, t *model.Table) error
	DeleteCascade(ctx context.Context, storeID, id uint64) error
}

// CatalogStore is category and menu persistence, scoped by store.
type CatalogStore interface {
	ListCategories(ctx context.Context, storeID uint64) ([]model.Category, error)
	GetCategory(ctx context.Context, storeID, id uint64) (*model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	UpdateCategory(ctx context.Context, c *model.Category) error
	DeleteCategory(ctx context.Context, storeID, id uint64) (uint64, error)
	ListMenus(ctx context.Context, storeID, categoryID uint64, availableOnly bool) ([]model.Menu, error)
	GetMenu(ctx context.Context, storeID, id uint64) (*model.Menu, error)
	CreateMenu(ctx context.Context, storeID uint64, m *model.Menu) error
	UpdateMenu(ctx context.Context, storeID uint64, m *model.Menu) error
	DisableMenu(ctx context.Context, storeID, id uint64) error
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}
