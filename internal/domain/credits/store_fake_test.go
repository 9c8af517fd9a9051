package credits_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dispatchly/dispatchly-api/internal/domain/credits"
)

// fakeStore is an in-memory Store with the same locking discipline as the
// real repository: one mutex per store, every mutation updates the account
// and appends the ledger entry atomically.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*credits.Account
	ledger   map[uuid.UUID][]credits.Transaction
	refs     map[string]bool

	debitErr error // forced Debit failure, for deduction-failure paths
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[uuid.UUID]*credits.Account),
		ledger:   make(map[uuid.UUID][]credits.Transaction),
		refs:     make(map[string]bool),
	}
}

func (f *fakeStore) account(tenantID uuid.UUID) *credits.Account {
	acct, ok := f.accounts[tenantID]
	if !ok {
		acct = &credits.Account{TenantID: tenantID}
		f.accounts[tenantID] = acct
	}
	return acct
}

func (f *fakeStore) append(acct *credits.Account, kind credits.TxKind, amount int64, paymentRef string, meta credits.TxMeta) {
	var ref *string
	if paymentRef != "" {
		ref = &paymentRef
	}
	f.ledger[acct.TenantID] = append(f.ledger[acct.TenantID], credits.Transaction{
		ID:           uuid.New(),
		TenantID:     acct.TenantID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: acct.Balance,
		Feature:      string(meta.Feature),
		Description:  meta.Description,
		PaymentRef:   ref,
		CreatedAt:    time.Now(),
	})
	acct.UpdatedAt = time.Now()
}

func (f *fakeStore) GetAccount(ctx context.Context, tenantID uuid.UUID) (*credits.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *f.account(tenantID)
	return &copy, nil
}

func (f *fakeStore) HasSufficientCredits(ctx context.Context, tenantID uuid.UUID, amount int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account(tenantID).Balance >= amount, nil
}

func (f *fakeStore) Credit(ctx context.Context, tenantID uuid.UUID, amount int64, meta credits.TxMeta) (*credits.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acct := f.account(tenantID)
	acct.Balance += amount
	acct.TotalAdded += amount
	f.append(acct, credits.TxKindCredit, amount, "", meta)
	copy := *acct
	return &copy, nil
}

func (f *fakeStore) Debit(ctx context.Context, tenantID uuid.UUID, amount int64, meta credits.TxMeta) (*credits.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.debitErr != nil {
		return nil, f.debitErr
	}

	acct := f.account(tenantID)
	if acct.Balance < amount {
		return nil, credits.ErrInsufficientCredits
	}
	acct.Balance -= amount
	acct.TotalUsed += amount
	f.append(acct, credits.TxKindDebit, amount, "", meta)
	copy := *acct
	return &copy, nil
}

func (f *fakeStore) Reset(ctx context.Context, tenantID uuid.UUID, newBalance int64, meta credits.TxMeta) (*credits.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acct := f.account(tenantID)
	delta := newBalance - acct.Balance
	if delta == 0 {
		copy := *acct
		return &copy, nil
	}

	kind := credits.TxKindCredit
	magnitude := delta
	if delta < 0 {
		kind = credits.TxKindDebit
		magnitude = -delta
	}

	acct.Balance = newBalance
	if kind == credits.TxKindCredit {
		acct.TotalAdded += magnitude
	} else {
		acct.TotalUsed += magnitude
	}
	f.append(acct, kind, magnitude, "", meta)
	copy := *acct
	return &copy, nil
}

func (f *fakeStore) CreditPayment(ctx context.Context, tenantID uuid.UUID, amount int64, paymentRef string, meta credits.TxMeta) (*credits.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := tenantID.String() + "/" + paymentRef
	if f.refs[key] {
		return nil, credits.ErrAlreadyProcessed
	}
	f.refs[key] = true

	acct := f.account(tenantID)
	acct.Balance += amount
	acct.TotalAdded += amount
	f.append(acct, credits.TxKindCredit, amount, paymentRef, meta)
	copy := *acct
	return &copy, nil
}

func (f *fakeStore) ListTransactions(ctx context.Context, tenantID uuid.UUID, p credits.Pagination) ([]credits.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := f.ledger[tenantID]
	out := make([]credits.Transaction, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// entriesOf returns the tenant's ledger oldest first.
func (f *fakeStore) entriesOf(tenantID uuid.UUID) []credits.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]credits.Transaction(nil), f.ledger[tenantID]...)
}

var errForcedDebit = errors.New("forced debit failure")
