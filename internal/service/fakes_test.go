package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/table-order/internal/model"
	"github.com/iliyamo/table-order/internal/queue"
	"github.com/iliyamo/table-order/internal/repository"
)

// fakeSessions mimics SessionRepo including the one-open-session rule.
type fakeSessions struct {
	mu       sync.Mutex
	tables   map[uint64]model.Table
	sessions map[uint64]*model.Session
	nextID   uint64
	creates  int
}

func newFakeSessions(tables ...model.Table) *fakeSessions {
	f := &fakeSessions{tables: map[uint64]model.Table{}, sessions: map[uint64]*model.Session{}}
	for _, t := range tables {
		f.tables[t.ID] = t
	}
	return f
}

func (f *fakeSessions) openFor(tableID uint64) *model.Session {
	for _, s := range f.sessions {
		if s.TableID == tableID && s.EndedAt == nil {
			return s
		}
	}
	return nil
}

func (f *fakeSessions) CreateForTable(_ context.Context, tableID uint64, tokenHash string, startedAt time.Time, takeover bool) (*model.Session, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	t, ok := f.tables[tableID]
	if !ok || !t.IsActive {
		return nil, 0, repository.ErrTableNotFound
	}
	var replaced uint64
	if open := f.openFor(tableID); open != nil {
		if !takeover {
			return nil, 0, repository.ErrActiveSession
		}
		at := startedAt
		open.EndedAt = &at
		replaced = open.ID
	}
	f.nextID++
	s := &model.Session{ID: f.nextID, TableID: tableID, StoreID: t.StoreID, TokenHash: tokenHash, StartedAt: startedAt}
	f.sessions[s.ID] = s
	cp := *s
	return &cp, replaced, nil
}

func (f *fakeSessions) GetActiveByTable(_ context.Context, tableID uint64) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s := f.openFor(tableID); s != nil {
		cp := *s
		return &cp, nil
	}
	return nil, repository.ErrSessionNotFound
}

func (f *fakeSessions) GetByID(_ context.Context, id uint64) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, repository.ErrSessionNotFound
}

func (f *fakeSessions) GetByTokenHash(_ context.Context, hash string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.TokenHash == hash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (f *fakeSessions) End(_ context.Context, id uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if s.EndedAt != nil {
		return repository.ErrSessionEnded
	}
	s.EndedAt = &at
	return nil
}

func (f *fakeSessions) EndStartedBefore(_ context.Context, cutoff, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.sessions {
		if s.EndedAt == nil && s.StartedAt.Before(cutoff) {
			end := at
			s.EndedAt = &end
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) EndAll(ctx context.Context, at time.Time) (int64, error) {
	return f.EndStartedBefore(ctx, at.Add(time.Nanosecond), at)
}

func (f *fakeSessions) openCount(tableID uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessions {
		if s.TableID == tableID && s.EndedAt == nil {
			n++
		}
	}
	return n
}

type fakeTables map[string]model.Table

func (f fakeTables) GetActiveByQRCode(_ context.Context, qr string) (*model.Table, error) {
	t, ok := f[qr]
	if !ok || !t.IsActive {
		return nil, repository.ErrTableNotFound
	}
	return &t, nil
}

// fakeMenus is keyed by store then menu id.
type fakeMenus struct {
	mu    sync.Mutex
	menus map[uint64]map[uint64]model.Menu
}

func (f *fakeMenus) put(storeID uint64, m model.Menu) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.menus == nil {
		f.menus = map[uint64]map[uint64]model.Menu{}
	}
	if f.menus[storeID] == nil {
		f.menus[storeID] = map[uint64]model.Menu{}
	}
	f.menus[storeID][m.ID] = m
}

func (f *fakeMenus) GetMenusByIDs(_ context.Context, storeID uint64, ids []uint64) (map[uint64]model.Menu, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uint64]model.Menu{}
	for _, id := range ids {
		if m, ok := f.menus[storeID][id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

type counterKey struct {
	store uint64
	day   string
}

// fakeOrders keeps orders in memory with a serialized per-store per-day
// counter.
type fakeOrders struct {
	mu       sync.Mutex
	sessions *fakeSessions
	counters map[counterKey]int
	orders   map[uint64]*model.Order
	history  map[uint64][]model.OrderHistory
	days     []string
	nextID   uint64
	writes   int
}

func newFakeOrders(sessions *fakeSessions) *fakeOrders {
	return &fakeOrders{
		sessions: sessions,
		counters: map[counterKey]int{},
		orders:   map[uint64]*model.Order{},
		history:  map[uint64][]model.OrderHistory{},
	}
}

func (f *fakeOrders) NextOrderSeq(_ context.Context, storeID uint64, day string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := counterKey{storeID, day}
	f.counters[k]++
	return f.counters[k], nil
}

func (f *fakeOrders) CreateWithItems(ctx context.Context, o *model.Order, day string) error {
	if s, err := f.sessions.GetByID(ctx, o.SessionID); err != nil {
		return err
	} else if !s.Active() {
		return repository.ErrSessionEnded
	}
	seq, _ := f.NextOrderSeq(ctx, o.StoreID, day)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.nextID++
	o.ID = f.nextID
	o.OrderNumber = model.FormatOrderNumber(seq)
	for i := range o.Items {
		o.Items[i].ID = o.ID*100 + uint64(i)
		o.Items[i].OrderID = o.ID
	}
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	f.orders[o.ID] = &cp
	f.days = append(f.days, day)
	return nil
}

func (f *fakeOrders) ChangeStatus(_ context.Context, id uint64, status model.OrderStatus, at time.Time) (model.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return "", repository.ErrOrderNotFound
	}
	old := o.Status
	f.history[id] = append(f.history[id], model.OrderHistory{ID: uint64(len(f.history[id]) + 1), OrderID: id, OldStatus: old, NewStatus: status, ChangedAt: at})
	o.Status = status
	o.UpdatedAt = at
	return old, nil
}

func (f *fakeOrders) GetByID(_ context.Context, id uint64) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) ListByStore(_ context.Context, storeID uint64, status model.OrderStatus, _ int) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Order{}
	for _, o := range f.orders {
		if o.StoreID == storeID && (status == "" || o.Status == status) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeOrders) ListBySession(_ context.Context, sessionID uint64) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Order{}
	for _, o := range f.orders {
		if o.SessionID == sessionID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeOrders) History(_ context.Context, orderID uint64) ([]model.OrderHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.OrderHistory{}, f.history[orderID]...), nil
}

type notification struct {
	kind    string
	storeID uint64
	order   model.Order
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (f *fakeNotifier) NotifyNewOrder(storeID uint64, o model.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{"new_order", storeID, o})
}

func (f *fakeNotifier) NotifyOrderUpdate(storeID uint64, o model.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{"order_update", storeID, o})
}

func (f *fakeNotifier) all() []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification(nil), f.sent...)
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []queue.OrderEvent
}

func (f *fakePublisher) Publish(_ context.Context, ev queue.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

type fakeAdmins map[string]model.Admin

func (f fakeAdmins) GetByUsername(_ context.Context, username string) (*model.Admin, error) {
	a, ok := f[username]
	if !ok {
		return nil, repository.ErrAdminNotFound
	}
	return &a, nil
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
