package application

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"storefront/internal/service/checkout/domain"
	"storefront/internal/service/checkout/domain/port"
)

type memCarts struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
}

func (m *memCarts) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[userID]; ok {
		cp := *c
		cp.Groups = cloneGroups(c.Groups)
		return &cp, nil
	}
	return domain.NewCart(userID), nil
}

func (m *memCarts) Save(_ context.Context, c *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.Groups = cloneGroups(c.Groups)
	m.carts[c.UserID] = &cp
	return nil
}

func cloneGroups(groups []domain.ShopGroup) []domain.ShopGroup {
	out := make([]domain.ShopGroup, len(groups))
	for i, g := range groups {
		out[i] = g
		out[i].Items = append([]domain.CartItem(nil), g.Items...)
	}
	return out
}

type memAddresses struct {
	mu    sync.Mutex
	books map[string]*domain.AddressBook
}

func (m *memAddresses) Get(_ context.Context, userID string) (*domain.AddressBook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.books[userID]; ok {
		cp := *b
		cp.Addresses = append([]domain.Address(nil), b.Addresses...)
		return &cp, nil
	}
	return domain.NewAddressBook(userID), nil
}

func (m *memAddresses) Save(_ context.Context, b *domain.AddressBook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	cp.Addresses = append([]domain.Address(nil), b.Addresses...)
	m.books[b.UserID] = &cp
	return nil
}

// memOrders 按条件更新状态；beforeRead 让测试在读取订单前同步多个调用方
type memOrders struct {
	mu         sync.Mutex
	orders     map[string]*domain.Order
	saveErr    error
	states     []domain.OrderState
	beforeRead func()
}

func (m *memOrders) Save(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrders) FindByID(_ context.Context, id string) (*domain.Order, error) {
	if m.beforeRead != nil {
		m.beforeRead()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) FindByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memOrders) UpdateState(_ context.Context, id string, from, to domain.OrderState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.State != from {
		return domain.ErrInvalidOrderState
	}
	m.states = append(m.states, to)
	o.State = to
	return nil
}

func (m *memOrders) state(id string) domain.OrderState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].State
}

// staleOrders 总是返回读取时的旧快照，写入仍走底层存储
type staleOrders struct {
	*memOrders
	snapshot domain.Order
}

func (s *staleOrders) FindByID(_ context.Context, id string) (*domain.Order, error) {
	cp := s.snapshot
	return &cp, nil
}

// flatShipping 对每个店铺报固定运费，unknown 店铺没有报价
type flatShipping struct {
	fee decimal.Decimal
	err error
}

func (f *flatShipping) GetQuotes(_ context.Context, shopIDs []string) ([]domain.ShippingQuote, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.ShippingQuote
	for _, id := range shopIDs {
		if id == "unknown" {
			continue
		}
		out = append(out, domain.ShippingQuote{ShopID: id, Fee: f.fee, Success: true, LeadTime: "2-3 days"})
	}
	return out, nil
}

type fakePromotion struct {
	discount  decimal.Decimal
	err       error
	used      []port.CouponRequest
	cancelled []port.CouponRequest
	previewed []port.CouponRequest
}

func (f *fakePromotion) PreviewCoupon(_ context.Context, req port.CouponRequest) (decimal.Decimal, error) {
	f.previewed = append(f.previewed, req)
	return f.discount, f.err
}

func (f *fakePromotion) UseCoupon(_ context.Context, req port.CouponRequest) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	f.used = append(f.used, req)
	return f.discount, nil
}

func (f *fakePromotion) CancelCoupon(_ context.Context, req port.CouponRequest) error {
	f.cancelled = append(f.cancelled, req)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*domain.OrderEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, e *domain.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

// countingLocker 是阻塞式的按 key 互斥锁，记录获取次数和当前持有的 key
type countingLocker struct {
	mu       sync.Mutex
	slots    map[string]chan struct{}
	held     map[string]bool
	acquired int
	err      error
}

func (l *countingLocker) Lock(ctx context.Context, key string) (func() error, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	if l.slots == nil {
		l.slots = make(map[string]chan struct{})
	}
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	l.mu.Lock()
	l.held[key] = true
	l.acquired++
	l.mu.Unlock()

	var once sync.Once
	return func() error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
			<-slot
		})
		return nil
	}, nil
}

func (l *countingLocker) acquiredCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired
}

type recordingNotifier struct {
	pushed map[string][]domain.CheckoutTotals
}

func (n *recordingNotifier) NotifyTotals(userID string, totals domain.CheckoutTotals) {
	n.pushed[userID] = append(n.pushed[userID], totals)
}
