package credits

import (
	"time"

	"github.com/google/uuid"
)

// TxKind is the direction of a ledger entry.
type TxKind string

const (
	TxKindCredit TxKind = "credit"
	TxKindDebit  TxKind = "debit"
)

// Account is the per-tenant balance row. balance == total_added - total_used
// at every point visible outside a repository transaction.
type Account struct {
	TenantID   uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Balance    int64     `db:"balance" json:"balance"`
	TotalAdded int64     `db:"total_added" json:"total_added"`
	TotalUsed  int64     `db:"total_used" json:"total_used"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction is an immutable ledger row. Corrections append new entries,
// history is never edited.
type Transaction struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	TenantID     uuid.UUID     `db:"tenant_id" json:"tenant_id"`
	Kind         TxKind        `db:"kind" json:"kind"`
	Amount       int64         `db:"amount" json:"amount"`
	BalanceAfter int64         `db:"balance_after" json:"balance_after"`
	Feature      string        `db:"feature" json:"feature"`
	Description  string        `db:"description" json:"description"`
	PaymentRef   *string       `db:"payment_ref" json:"payment_ref,omitempty"`
	ActorID      uuid.NullUUID `db:"actor_id" json:"actor_id,omitempty"`
	OrderID      uuid.NullUUID `db:"order_id" json:"order_id,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// TxMeta carries the ledger annotations for a mutation.
type TxMeta struct {
	Feature     Feature
	Description string
	ActorID     *uuid.UUID
	OrderID     *uuid.UUID
}

// Pagination controls transaction listing, newest first.
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) normalize() (limit, offset int) {
	limit = p.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}
