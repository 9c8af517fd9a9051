package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/dispatchly/dispatchly-api/internal/domain/credits"
	"github.com/dispatchly/dispatchly-api/internal/domain/orders"
)

// memCredits is a minimal in-memory credits.Store for gate wiring.
type memCredits struct {
	mu      sync.Mutex
	balance int64
	used    int64
	added   int64
	debits  int
}

func (m *memCredits) GetAccount(ctx context.Context, tenantID uuid.UUID) (*credits.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &credits.Account{TenantID: tenantID, Balance: m.balance, TotalAdded: m.added, TotalUsed: m.used}, nil
}

func (m *memCredits) HasSufficientCredits(ctx context.Context, tenantID uuid.UUID, amount int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance >= amount, nil
}

func (m *memCredits) Credit(ctx context.Context, tenantID uuid.UUID, amount int64, meta credits.TxMeta) (*credits.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance += amount
	m.added += amount
	return &credits.Account{TenantID: tenantID, Balance: m.balance}, nil
}

func (m *memCredits) Debit(ctx context.Context, tenantID uuid.UUID, amount int64, meta credits.TxMeta) (*credits.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balance < amount {
		return nil, credits.ErrInsufficientCredits
	}
	m.balance -= amount
	m.used += amount
	m.debits++
	return &credits.Account{TenantID: tenantID, Balance: m.balance}, nil
}

func (m *memCredits) Reset(ctx context.Context, tenantID uuid.UUID, newBalance int64, meta credits.TxMeta) (*credits.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = newBalance
	return &credits.Account{TenantID: tenantID, Balance: m.balance}, nil
}

func (m *memCredits) CreditPayment(ctx context.Context, tenantID uuid.UUID, amount int64, paymentRef string, meta credits.TxMeta) (*credits.Account, error) {
	return m.Credit(ctx, tenantID, amount, meta)
}

func (m *memCredits) ListTransactions(ctx context.Context, tenantID uuid.UUID, p credits.Pagination) ([]credits.Transaction, error) {
	return nil, nil
}

// fakeOrderStore records created orders in memory.
type fakeOrderStore struct {
	mu        sync.Mutex
	orders    []orders.Order
	createErr error
}

func (f *fakeOrderStore) Create(ctx context.Context, order *orders.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.orders = append(f.orders, *order)
	return nil
}

func (f *fakeOrderStore) UpdateStatus(ctx context.Context, id uuid.UUID, status orders.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].Status = status
		}
	}
	return nil
}

func (f *fakeOrderStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]orders.Order(nil), f.orders...), nil
}

type fakeDispatcher struct {
	calls int
	err   error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, order *orders.Order) error {
	d.calls++
	return d.err
}

func newOrdersFixture(t *testing.T, balance int64, dispatcher orders.Dispatcher) (*memCredits, *fakeOrderStore, *orders.Service) {
	t.Helper()

	mem := &memCredits{balance: balance, added: balance}
	costs, err := credits.NewCostTable(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gate := credits.NewGate(credits.NewService(mem, nil), costs)
	store := &fakeOrderStore{}
	return mem, store, orders.NewService(store, gate, dispatcher)
}

func TestCreateChargesOnSuccess(t *testing.T) {
	mem, store, svc := newOrdersFixture(t, 5, nil)
	tenant, user := uuid.New(), uuid.New()

	order, err := svc.Create(context.Background(), tenant, user, orders.CreateInput{
		Reference:     "ORD-1",
		RecipientName: "Aigerim",
		Address:       "12 Abay Ave",
		CODAmount:     2500,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != orders.StatusCreated {
		t.Fatalf("expected created status, got %s", order.Status)
	}
	if len(store.orders) != 1 {
		t.Fatalf("expected 1 stored order, got %d", len(store.orders))
	}
	if mem.balance != 4 || mem.debits != 1 {
		t.Fatalf("expected one 1-credit charge, balance=%d debits=%d", mem.balance, mem.debits)
	}
}

func TestCreateInsufficientCredits(t *testing.T) {
	mem, store, svc := newOrdersFixture(t, 0, nil)
	tenant, user := uuid.New(), uuid.New()

	_, err := svc.Create(context.Background(), tenant, user, orders.CreateInput{Reference: "ORD-2"})
	if !errors.Is(err, credits.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if len(store.orders) != 0 {
		t.Fatal("order must not be created without credits")
	}
	if mem.debits != 0 {
		t.Fatal("nothing should be charged")
	}
}

func TestCreateStoreFailureNotCharged(t *testing.T) {
	mem, store, svc := newOrdersFixture(t, 5, nil)
	store.createErr = errors.New("constraint violation")
	tenant, user := uuid.New(), uuid.New()

	_, err := svc.Create(context.Background(), tenant, user, orders.CreateInput{Reference: "ORD-3"})
	if err == nil {
		t.Fatal("expected error from store")
	}
	if mem.debits != 0 || mem.balance != 5 {
		t.Fatalf("failed creation must not charge, balance=%d debits=%d", mem.balance, mem.debits)
	}
}

func TestCreateDispatches(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	mem, store, svc := newOrdersFixture(t, 5, dispatcher)
	tenant, user := uuid.New(), uuid.New()

	order, err := svc.Create(context.Background(), tenant, user, orders.CreateInput{Reference: "ORD-4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dispatcher.calls != 1 {
		t.Fatalf("expected one dispatch call, got %d", dispatcher.calls)
	}
	if order.Status != orders.StatusDispatched {
		t.Fatalf("expected dispatched status, got %s", order.Status)
	}
	if store.orders[0].Status != orders.StatusDispatched {
		t.Fatalf("stored order not marked dispatched: %s", store.orders[0].Status)
	}
	if mem.debits != 1 {
		t.Fatalf("expected one charge, got %d", mem.debits)
	}
}

func TestCreateDispatchFailureStillCharged(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("courier timeout")}
	mem, store, svc := newOrdersFixture(t, 5, dispatcher)
	tenant, user := uuid.New(), uuid.New()

	order, err := svc.Create(context.Background(), tenant, user, orders.CreateInput{Reference: "ORD-5"})
	if err != nil {
		t.Fatalf("creation succeeded, dispatch failure must not surface: %v", err)
	}
	if order.Status != orders.StatusCreated {
		t.Fatalf("expected created status after failed dispatch, got %s", order.Status)
	}
	if len(store.orders) != 1 {
		t.Fatalf("expected stored order, got %d", len(store.orders))
	}
	if mem.debits != 1 {
		t.Fatalf("order exists, so the charge stands; debits=%d", mem.debits)
	}
}
